package identity

// defaultDomain is the fallback domain when none is configured.
const defaultDomain = "ghost.ink"

var adjectives = []string{
	"amber", "ashen", "autumn", "bitter", "black", "blue", "bold", "brave",
	"bright", "brisk", "calm", "clever", "cloudy", "cold", "cool", "copper",
	"crimson", "curious", "dappled", "dark", "dawn", "dim", "distant", "dry",
	"dusky", "eager", "early", "faded", "faint", "fleet", "fog", "frosty",
	"gentle", "gilded", "gray", "green", "hazy", "hidden", "hollow", "humble",
	"icy", "idle", "iron", "ivory", "jade", "keen", "late", "lightless",
	"lone", "low", "lucid", "lunar", "mellow", "mild", "misty", "mute",
	"narrow", "nimble", "northern", "old", "pale", "patient", "plain", "proud",
	"quick", "quiet", "rapid", "restless", "rough", "rustic", "sable", "sharp",
	"silent", "silver", "sleepy", "slow", "small", "smoky", "soft", "solemn",
	"spare", "still", "stray", "subtle", "swift", "tidal", "twilight", "umber",
	"vague", "veiled", "violet", "wandering", "wary", "wild", "windy", "winter",
}

var nouns = []string{
	"anchor", "arch", "ash", "badger", "beacon", "bell", "birch", "bramble",
	"bridge", "brook", "candle", "cedar", "cellar", "cinder", "cliff", "cloak",
	"comet", "crane", "creek", "crow", "dune", "echo", "elm", "ember",
	"fern", "finch", "fjord", "flint", "fox", "gale", "glade", "gull",
	"harbor", "haze", "heron", "hollow", "inlet", "iris", "keep", "kestrel",
	"lantern", "larch", "lark", "ledge", "lighthouse", "lynx", "marsh", "meadow",
	"mill", "mole", "moor", "moss", "moth", "newt", "oak", "orchard",
	"osprey", "otter", "owl", "pier", "pine", "plume", "pond", "quay",
	"raven", "reed", "ridge", "river", "rook", "sable", "shade", "shoal",
	"slate", "sparrow", "spire", "spruce", "stone", "swale", "tarn", "thicket",
	"thorn", "tide", "tower", "trail", "vale", "vault", "wharf", "willow",
	"wisp", "wolf", "wren", "yarrow",
}
