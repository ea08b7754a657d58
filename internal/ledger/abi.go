package ledger

// Method names of the stock ledger contract.
const (
	methodRegister       = "registerUser"
	methodCashBalance    = "cashBalance"
	methodSymbols        = "getSymbols"
	methodPrice          = "pricePerShare"
	methodBuy            = "buyStock"
	methodSell           = "sellStock"
	methodDeposit        = "depositVirtual"
	methodReset          = "resetPortfolio"
	methodAllHoldings    = "getAllHoldings"
	methodPortfolioValue = "getPortfolioValue"
)

// ABI is the interface of the stock ledger contract.
const ABI = `[
  {"type":"function","name":"registerUser","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"cashBalance","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getSymbols","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string[]"}]},
  {"type":"function","name":"pricePerShare","stateMutability":"view","inputs":[{"name":"","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"buyStock","stateMutability":"nonpayable","inputs":[{"name":"symbol","type":"string"},{"name":"qty","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"sellStock","stateMutability":"nonpayable","inputs":[{"name":"symbol","type":"string"},{"name":"qty","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"depositVirtual","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"resetPortfolio","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"getAllHoldings","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"string[]"},{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"getPortfolioValue","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`
