package contracts

// Hand-curated ABI fragments for the contracts the SDK talks to. Only the
// entry points the SDK actually calls are listed.

const safeABIJSON = `[
	{"type":"function","name":"nonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getThreshold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getOwners","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"approveHash","stateMutability":"nonpayable","inputs":[{"name":"hashToApprove","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"execTransaction","stateMutability":"payable","inputs":[
		{"name":"to","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"},
		{"name":"operation","type":"uint8"},
		{"name":"safeTxGas","type":"uint256"},
		{"name":"baseGas","type":"uint256"},
		{"name":"gasPrice","type":"uint256"},
		{"name":"gasToken","type":"address"},
		{"name":"refundReceiver","type":"address"},
		{"name":"signatures","type":"bytes"}],
	 "outputs":[{"name":"success","type":"bool"}]}
]`

const controllerRegistryABIJSON = `[
	{"type":"function","name":"memberController","stateMutability":"view","inputs":[{"name":"podId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}
]`

const controllerABIJSON = `[
	{"type":"function","name":"podAdmin","stateMutability":"view","inputs":[{"name":"podId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"podIdToSafe","stateMutability":"view","inputs":[{"name":"podId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}
]`

const memberTokenABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
]`
