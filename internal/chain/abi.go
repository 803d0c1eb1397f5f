package chain

// Minimal ABIs for the calls the monitor makes.

const tokenRegistryABI = `[
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"tokenByIndex","stateMutability":"view",
   "inputs":[{"name":"index","type":"uint256"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"ownerOf","stateMutability":"view",
   "inputs":[{"name":"tokenId","type":"uint256"}],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"tokenDetails","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[
     {"name":"assetType","type":"uint8"},
     {"name":"streamId","type":"uint64"},
     {"name":"metadataUri","type":"string"},
     {"name":"registeredAt","type":"uint256"}]}
]`

const streamingProtocolABI = `[
  {"type":"function","name":"streams","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[
     {"name":"sender","type":"address"},
     {"name":"recipient","type":"address"},
     {"name":"totalAmount","type":"uint256"},
     {"name":"flowRate","type":"uint256"},
     {"name":"startTime","type":"uint256"},
     {"name":"stopTime","type":"uint256"},
     {"name":"amountWithdrawn","type":"uint256"},
     {"name":"isActive","type":"bool"}]},
  {"type":"function","name":"claimFromStream","stateMutability":"nonpayable",
   "inputs":[{"name":"streamId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"cancelStream","stateMutability":"nonpayable",
   "inputs":[{"name":"streamId","type":"uint256"}],"outputs":[]}
]`
