package router

// RouterV2ABI is the subset of the Uniswap V2 router interface used for quotes.
// Sushiswap and Shibaswap deploy the same interface.
const RouterV2ABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"}
		],
		"name": "getAmountsOut",
		"outputs": [
			{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

const methodGetAmountsOut = "getAmountsOut"
