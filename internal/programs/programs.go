package programs

// ID is the symbolic identifier of a supported program.
type ID string

const (
	PumpFun          ID = "pumpfun"
	PumpSwap         ID = "pumpswap"
	RaydiumLaunchpad ID = "raydium-launchpad"
	RaydiumCPMM      ID = "raydium-cpmm"
	MeteoraDBC       ID = "meteora-dbc"
	MeteoraDAMMV2    ID = "meteora-damm-v2"
)

// Category distinguishes bonding-curve (pre-migration) programs from the AMMs
// tokens graduate into (post-migration).
type Category string

const (
	PreMigration  Category = "pre-migration"
	PostMigration Category = "post-migration"
)

// Program is one entry of the fixed program catalog.
type Program struct {
	ID       ID
	Address  string
	Category Category
}

// WrappedSOLMint is the native-token-wrapper mint, used as the default quote mint.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

// Catalog is the immutable id -> program mapping for all supported programs.
var Catalog = map[ID]Program{
	PumpFun:          {ID: PumpFun, Address: "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P", Category: PreMigration},
	PumpSwap:         {ID: PumpSwap, Address: "pAMMBay6oceH9fJKBRHGP5D4sWpmSwMn52FMfXEA", Category: PostMigration},
	RaydiumLaunchpad: {ID: RaydiumLaunchpad, Address: "LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj", Category: PreMigration},
	RaydiumCPMM:      {ID: RaydiumCPMM, Address: "CPMMoo8LZFXibnGeM4zyNKR5nRzEQAg2y6IAGqyXzW5M", Category: PostMigration},
	MeteoraDBC:       {ID: MeteoraDBC, Address: "dbcij3LWUppWqq96dh6gJWwBifmcGfLSB5D4DuSMaqN", Category: PreMigration},
	MeteoraDAMMV2:    {ID: MeteoraDAMMV2, Address: "cpamdpZCGKUy5JxQXB4dcpGPiikHawvSWAd6mEn1sGG", Category: PostMigration},
}

// byAddress is the reverse index, built once at init.
var byAddress = func() map[string]Program {
	m := make(map[string]Program, len(Catalog))
	for _, p := range Catalog {
		m[p.Address] = p
	}
	return m
}()

// ByAddress resolves an on-chain address to its catalog entry.
func ByAddress(addr string) (Program, bool) {
	p, ok := byAddress[addr]
	return p, ok
}

// Address returns the on-chain address for a program id, or "" if unknown.
func Address(id ID) string {
	return Catalog[id].Address
}

// IsKnown reports whether id names a catalog program.
func IsKnown(id ID) bool {
	_, ok := Catalog[id]
	return ok
}

// AggregatorTag names a known routing aggregator.
type AggregatorTag string

const (
	AggregatorJupiter AggregatorTag = "jupiter"
	AggregatorRaydium AggregatorTag = "raydium"
)

// Aggregators maps known aggregator addresses to their tag. The map is
// orthogonal to the program catalog: aggregators route into catalog programs
// but are never decoded themselves.
var Aggregators = map[string]AggregatorTag{
	"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4": AggregatorJupiter,
	"routeUGWgWzqBWFcrCfv8tritsqukccJPu3q5GPP3xS": AggregatorRaydium,
}
