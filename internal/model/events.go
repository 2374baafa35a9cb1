package model

// Event names emitted by the decoder.
const (
	EventPairCreated = "PairCreated"
	EventTransfer    = "Transfer"
	EventSync        = "Sync"
	EventMint        = "Mint"
	EventBurn        = "Burn"
	EventSwap        = "Swap"
)

// PairCreatedEventData is the decoded factory PairCreated payload.
type PairCreatedEventData struct {
	Token0    string `json:"token0"`
	Token1    string `json:"token1"`
	Pair      string `json:"pair"`
	PairIndex string `json:"pair_index"`
}

// TransferEventData is the decoded liquidity token Transfer payload.
type TransferEventData struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// SyncEventData is the decoded Sync payload.
type SyncEventData struct {
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

// MintEventData is the decoded Mint payload.
type MintEventData struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
}

// BurnEventData is the decoded Burn payload.
type BurnEventData struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1"`
	To      string `json:"to"`
}

// SwapEventData is the decoded Swap payload.
type SwapEventData struct {
	Sender     string `json:"sender"`
	Amount0In  string `json:"amount0_in"`
	Amount1In  string `json:"amount1_in"`
	Amount0Out string `json:"amount0_out"`
	Amount1Out string `json:"amount1_out"`
	To         string `json:"to"`
}
