package util

import "github.com/tranvictor/abiscope/ui"

// ParamDisplay is the view-model of one decoded argument. Scalars and
// flattened arrays fill Values; tuples and arrays of tuples fill Fields.
type ParamDisplay struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Indexed bool            `json:"indexed,omitempty"`
	Values  []ui.StyledText `json:"values,omitempty"`
	Fields  []ParamDisplay  `json:"fields,omitempty"`
}

func (p ParamDisplay) complex() bool {
	return p.Fields != nil
}

type FunctionCallDisplay struct {
	Destination ui.StyledText          `json:"destination"`
	Value       string                 `json:"value,omitempty"`
	Method      string                 `json:"method,omitempty"`
	Signature   string                 `json:"signature,omitempty"`
	Source      string                 `json:"source,omitempty"`
	Params      []ParamDisplay         `json:"params,omitempty"`
	InnerCalls  []*FunctionCallDisplay `json:"inner_calls,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// LogDisplay is one event log. Name is empty when the log couldn't be
// decoded, in which case Error says why and Topics carries the raw topics.
type LogDisplay struct {
	Index     uint           `json:"index"`
	Address   ui.StyledText  `json:"address"`
	Name      string         `json:"name,omitempty"`
	Signature string         `json:"signature,omitempty"`
	Source    string         `json:"source,omitempty"`
	Params    []ParamDisplay `json:"params,omitempty"`
	Topics    []string       `json:"topics,omitempty"`
	Data      string         `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
}

type TxDisplay struct {
	Hash   string        `json:"hash,omitempty"`
	Status string        `json:"status"`
	From   ui.StyledText `json:"from"`
	To     ui.StyledText `json:"to"`
	Value  string        `json:"value"`

	Nonce    string `json:"nonce"`
	GasPrice string `json:"gas_price"`
	GasLimit string `json:"gas_limit"`
	GasUsed  string `json:"gas_used,omitempty"`
	TxType   uint8  `json:"tx_type"`

	ContractCreated string               `json:"contract_created,omitempty"`
	FunctionCall    *FunctionCallDisplay `json:"function_call,omitempty"`
	Logs            []LogDisplay         `json:"logs,omitempty"`
}
