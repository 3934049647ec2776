package util

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	abicommon "github.com/tranvictor/abiscope/common"
	"github.com/tranvictor/abiscope/contract"
	"github.com/tranvictor/abiscope/networks"
	"github.com/tranvictor/abiscope/txanalyzer"
	"github.com/tranvictor/abiscope/ui"
)

// Results decoded from the contract's own interface are green, results
// that needed the signature resolver are yellow.
func sourceSeverity(source contract.Source) ui.Severity {
	if source == contract.SourceResolver {
		return ui.SeverityWarn
	}
	return ui.SeveritySuccess
}

func styledAddress(addr common.Address, name string) ui.StyledText {
	if name == "" {
		return ui.StyledText{Text: addr.Hex(), Severity: ui.SeverityWarn}
	}
	return ui.StyledText{Text: abicommon.PlainAddress(addr, name), Severity: ui.SeveritySuccess}
}

// ── Build phase ─────────────────────────────────────────────────────────────

func buildParamDisplay(arg contract.DecodedArgument, token *contract.TokenMetadata) ParamDisplay {
	d := ParamDisplay{Name: arg.Name, Type: arg.Type, Indexed: arg.Indexed}
	if arg.Components != nil {
		d.Fields = []ParamDisplay{}
		for _, c := range arg.Components {
			d.Fields = append(d.Fields, buildParamDisplay(c, nil))
		}
		return d
	}
	d.Values = []ui.StyledText{}
	for _, text := range arg.Text {
		d.Values = append(d.Values, ui.StyledText{Text: formatValue(arg, text, token)})
	}
	return d
}

// formatValue adds the human readable amount to the value of a fungible
// token transfer and groups the digits of other long integers.
func formatValue(arg contract.DecodedArgument, text string, token *contract.TokenMetadata) string {
	if !strings.HasPrefix(arg.Type, "uint") && !strings.HasPrefix(arg.Type, "int") {
		return text
	}
	if token != nil && token.Standard == contract.StandardERC20 && !arg.Indexed {
		if amount, ok := arg.Value.(*big.Int); ok {
			return abicommon.TokenAmount(amount, token.Decimals, token.Symbol)
		}
	}
	return abicommon.ReadableNumber(text)
}

func buildParamDisplays(args []contract.DecodedArgument, token *contract.TokenMetadata) []ParamDisplay {
	result := []ParamDisplay{}
	for _, arg := range args {
		result = append(result, buildParamDisplay(arg, token))
	}
	return result
}

func nativeAmount(value *big.Int, network networks.Network) string {
	if value == nil {
		value = big.NewInt(0)
	}
	return abicommon.TokenAmount(value, uint8(network.GetNativeTokenDecimal()), network.GetNativeTokenSymbol())
}

func buildFunctionCallDisplay(fc *txanalyzer.FunctionCall, network networks.Network) *FunctionCallDisplay {
	d := &FunctionCallDisplay{Destination: styledAddress(fc.Destination, fc.Contract)}
	if fc.Value != nil && fc.Value.Sign() > 0 {
		d.Value = nativeAmount(fc.Value, network)
	}
	if fc.Error != nil {
		d.Error = fc.Error.Error()
	}
	if fc.Call != nil {
		d.Method = fc.Call.Name
		d.Signature = fc.Call.Signature
		d.Source = string(fc.Call.Source)
		d.Params = buildParamDisplays(fc.Call.Arguments, nil)
	}
	for _, inner := range fc.DecodedFunctionCalls {
		d.InnerCalls = append(d.InnerCalls, buildFunctionCallDisplay(inner, network))
	}
	return d
}

func buildLogDisplay(l contract.DecodedLog) LogDisplay {
	d := LogDisplay{
		Index:   l.Log.Index,
		Address: ui.StyledText{Text: l.Log.Address.Hex()},
	}
	if l.Token != nil && l.Token.Symbol != "" {
		d.Address = ui.StyledText{Text: abicommon.PlainAddress(l.Log.Address, l.Token.Symbol), Severity: ui.SeveritySuccess}
	}
	if !l.Decoded() {
		for _, topic := range l.Log.Topics {
			d.Topics = append(d.Topics, topic.Hex())
		}
		d.Data = hexutil.Encode(l.Log.Data)
		if l.Err != nil {
			d.Error = l.Err.Error()
		}
		return d
	}
	d.Name = l.Name
	d.Signature = l.Signature
	d.Source = string(l.Source)
	var token *contract.TokenMetadata
	if l.IsValueTransfer {
		token = l.Token
	}
	d.Params = buildParamDisplays(l.Arguments, token)
	return d
}

func buildTxDisplay(result *txanalyzer.TxResult, network networks.Network) *TxDisplay {
	d := &TxDisplay{
		Hash:     result.Hash.Hex(),
		Status:   result.Status,
		From:     ui.StyledText{Text: result.From.Hex()},
		Value:    nativeAmount(result.Value, network),
		Nonce:    fmt.Sprintf("%d", result.Nonce),
		GasLimit: fmt.Sprintf("%d", result.GasLimit),
		TxType:   result.TxType,
	}
	if result.GasPrice != nil {
		d.GasPrice = abicommon.BigToFloatString(result.GasPrice, 9) + " gwei"
	}
	if result.Completed {
		d.GasUsed = fmt.Sprintf("%d", result.GasUsed)
	}
	if result.To != nil {
		name := ""
		if result.FunctionCall != nil {
			name = result.FunctionCall.Contract
		}
		d.To = styledAddress(*result.To, name)
	}
	if result.ContractCreated != nil {
		d.ContractCreated = result.ContractCreated.Hex()
	}
	if result.FunctionCall != nil {
		d.FunctionCall = buildFunctionCallDisplay(result.FunctionCall, network)
	}
	for _, l := range result.Logs {
		d.Logs = append(d.Logs, buildLogDisplay(l))
	}
	return d
}

// ── Print phase ─────────────────────────────────────────────────────────────

func paramLabel(p ParamDisplay) string {
	if p.Indexed {
		return fmt.Sprintf("%s (%s, indexed)", p.Name, p.Type)
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Type)
}

// paramRows flattens params into [label, value] rows. Tuple fields are
// indented two spaces per level under a row for the tuple itself.
func paramRows(u ui.UI, params []ParamDisplay, depth int) [][]string {
	var rows [][]string
	pad := strings.Repeat("  ", depth)
	for _, p := range params {
		label := pad + paramLabel(p)
		switch {
		case p.complex():
			rows = append(rows, []string{label, ""})
			rows = append(rows, paramRows(u, p.Fields, depth+1)...)
		case len(p.Values) == 0:
			rows = append(rows, []string{label, "[]"})
		case len(p.Values) == 1 && !strings.HasSuffix(p.Type, "]"):
			rows = append(rows, []string{label, u.Style(p.Values[0])})
		default:
			for i, v := range p.Values {
				rows = append(rows, []string{fmt.Sprintf("%s [%d]", label, i), u.Style(v)})
			}
		}
	}
	return rows
}

func methodLabel(u ui.UI, text, source string) string {
	return u.Style(ui.StyledText{
		Text:     text,
		Severity: sourceSeverity(contract.Source(source)),
	})
}

func printFunctionCallDisplay(u ui.UI, d *FunctionCallDisplay, nested bool) {
	if d.Method == "" && d.Error == "" {
		u.Info("Plain transfer to %s", u.Style(d.Destination))
		return
	}
	if d.Method == "" {
		u.Error("Couldn't decode call to %s: %s", u.Style(d.Destination), d.Error)
		return
	}
	if nested {
		u.Info("↳ %s  [%s]", methodLabel(u, d.Signature, d.Source), u.Style(d.Destination))
		if rows := paramRows(u, d.Params, 0); len(rows) > 0 {
			u.Indent().Table([]string{"Parameter", "Value"}, rows)
		}
	} else {
		u.Section(fmt.Sprintf("Function call: %s", d.Method))
		meta := [][]string{
			{"Contract", u.Style(d.Destination)},
			{"Method", methodLabel(u, d.Signature, d.Source)},
		}
		if d.Value != "" {
			meta = append(meta, []string{"Value", d.Value})
		}
		groups := [][][]string{meta}
		if rows := paramRows(u, d.Params, 0); len(rows) > 0 {
			groups = append(groups, rows)
		}
		u.TableWithGroups(nil, groups)
	}
	if d.Source == string(contract.SourceResolver) {
		u.Indent().Warn("decoded by signature lookup, parameter names are unknown")
	}
	for _, inner := range d.InnerCalls {
		printFunctionCallDisplay(u.Indent(), inner, true)
	}
}

// printAllLogs renders every log in one Event | Parameter | Value table
// with a group per log.
func printAllLogs(u ui.UI, logs []LogDisplay) {
	if len(logs) == 0 {
		return
	}
	u.Section("Event Logs")

	groups := make([][][]string, 0, len(logs))
	for _, d := range logs {
		var rows [][]string
		if d.Name == "" {
			rows = append(rows, []string{"", "error", u.Style(ui.StyledText{Text: d.Error, Severity: ui.SeverityError})})
			for i, topic := range d.Topics {
				rows = append(rows, []string{"", fmt.Sprintf("topic[%d]", i), topic})
			}
			rows = append(rows, []string{"", "data", d.Data})
		} else {
			rows = append(rows, []string{"", "emitter", u.Style(d.Address)})
			for _, pr := range paramRows(u, d.Params, 0) {
				rows = append(rows, []string{"", pr[0], pr[1]})
			}
		}
		rows[0][0] = logLabel(u, d)
		groups = append(groups, rows)
	}
	u.TableWithGroups([]string{"Event", "Parameter", "Value"}, groups)
}

func logLabel(u ui.UI, d LogDisplay) string {
	if d.Name == "" {
		return u.Style(ui.StyledText{Text: fmt.Sprintf("%d. unknown", d.Index), Severity: ui.SeverityError})
	}
	return fmt.Sprintf("%d. %s", d.Index, methodLabel(u, d.Name, d.Source))
}

func printTxDisplay(u ui.UI, d *TxDisplay) {
	status := d.Status
	severity := ui.SeverityInfo
	switch d.Status {
	case txanalyzer.StatusDone:
		status, severity = "✓ "+d.Status, ui.SeveritySuccess
	case txanalyzer.StatusReverted:
		status, severity = "✗ "+d.Status, ui.SeverityError
	}
	summary := [][]string{
		{"Hash", d.Hash},
		{"Status", u.Style(ui.StyledText{Text: status, Severity: severity})},
		{"From", u.Style(d.From)},
	}
	if d.ContractCreated != "" {
		summary = append(summary, []string{"Created", d.ContractCreated})
	} else {
		summary = append(summary, []string{"To", u.Style(d.To)})
	}
	summary = append(summary, []string{"Value", d.Value})

	gas := [][]string{
		{"Type", fmt.Sprintf("%d", d.TxType)},
		{"Nonce", d.Nonce},
		{"Gas price", d.GasPrice},
		{"Gas limit", d.GasLimit},
	}
	if d.GasUsed != "" {
		gas = append(gas, []string{"Gas used", d.GasUsed})
	}
	u.TableWithGroups(nil, [][][]string{summary, gas})

	if d.FunctionCall != nil {
		printFunctionCallDisplay(u, d.FunctionCall, false)
	}
	printAllLogs(u, d.Logs)
}

// ── Public API ──────────────────────────────────────────────────────────────

// DisplayParams renders decoded arguments, e.g. the result of a param
// decode or the return values of a call, as one table.
func DisplayParams(u ui.UI, args []contract.DecodedArgument) []ParamDisplay {
	d := buildParamDisplays(args, nil)
	if rows := paramRows(u, d, 0); len(rows) > 0 {
		u.Table([]string{"Parameter", "Value"}, rows)
	}
	return d
}

// DisplayFunctionCall renders a decoded call and any inner calls decoded
// from its arguments.
func DisplayFunctionCall(u ui.UI, fc *txanalyzer.FunctionCall, network networks.Network) *FunctionCallDisplay {
	d := buildFunctionCallDisplay(fc, network)
	printFunctionCallDisplay(u, d, false)
	return d
}

func DisplayLogs(u ui.UI, logs []contract.DecodedLog) []LogDisplay {
	d := []LogDisplay{}
	for _, l := range logs {
		d = append(d, buildLogDisplay(l))
	}
	printAllLogs(u, d)
	return d
}

// DisplayTxResult renders an analyzed transaction. The returned *TxDisplay
// marshals to JSON without any terminal styling.
func DisplayTxResult(u ui.UI, result *txanalyzer.TxResult, network networks.Network) *TxDisplay {
	d := buildTxDisplay(result, network)
	printTxDisplay(u, d)
	return d
}

// DisplayEntries lists interface entries by kind and signature.
func DisplayEntries(u ui.UI, entries []contract.Entry) {
	rows := [][]string{}
	for _, e := range entries {
		selector := ""
		switch e.Kind {
		case contract.KindFunction:
			sel := contract.Selector(e.Signature())
			selector = hexutil.Encode(sel[:])
		case contract.KindEvent:
			selector = contract.TopicHash(e.Signature()).Hex()
		}
		rows = append(rows, []string{string(e.Kind), e.Signature(), selector})
	}
	u.Table([]string{"Kind", "Signature", "Selector"}, rows)
}
