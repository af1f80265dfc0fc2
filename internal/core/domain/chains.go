package domain

type Network string
type Currency int

const (
	NetworkBTC Network = "BTC"
	NetworkETH Network = "ETH"
	NetworkBSC Network = "BSC"
	NetworkBNB Network = "BNB"
	NetworkTRX Network = "TRX"
	NetworkLTC Network = "LTC"
)

const (
	CurrencyUnknown Currency = 0
	CurrencyBTC     Currency = 10
	CurrencyETH     Currency = 11
	CurrencyLTC     Currency = 12
	CurrencyBNB     Currency = 50
	CurrencyTRX     Currency = 60
	CurrencyBSC     Currency = 70
)

// NetworkCurrency maps a network to the currency of its main coin.
var NetworkCurrency = map[Network]Currency{
	NetworkBTC: CurrencyBTC,
	NetworkETH: CurrencyETH,
	NetworkBSC: CurrencyBSC,
	NetworkBNB: CurrencyBNB,
	NetworkTRX: CurrencyTRX,
	NetworkLTC: CurrencyLTC,
}

// NetworkPrecision is the number of fractional decimal digits of each
// network's smallest unit. Conversions must go through FromUnit/ToUnit;
// floating point is never acceptable for financial amounts.
var NetworkPrecision = map[Network]int32{
	NetworkBTC: 8,
	NetworkETH: 18,
	NetworkBSC: 18,
	NetworkBNB: 8,
	NetworkTRX: 6,
	NetworkLTC: 8,
}
