package networks

// Hosts is the set of explorer base hosts the endpoint is built from.
type Hosts struct {
	Clearnet string `yaml:"clearnet" json:"clearnet"`
	OnionV2  string `yaml:"onionV2" json:"onionV2"`
	OnionV3  string `yaml:"onionV3" json:"onionV3"`
}

// DefaultHosts points at the public Blockstream explorer.
var DefaultHosts = Hosts{
	Clearnet: "https://blockstream.info",
	OnionV2:  "http://explorernuoc63nb.onion",
	OnionV3:  "http://explorerzydxu5ecjrkwceayqybizmpjjznk5izmitf2modhcusuqlid.onion",
}

// network name (as lightningd reports it) → API suffix
var apiSuffix = map[string]string{
	"bitcoin": "/api",
	"testnet": "/testnet/api",
	"liquid":  "/liquid/api",
}
