package pod

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/orcaprotocol/orca-go/pkg/relay"
)

// AttachDecodedCall attaches a human-readable method and parameter
// description to a transaction record by looking up the target's verified
// ABI. Best effort only: records with no call data are returned unchanged,
// and an unverified contract or throttled explorer leaves the record
// undecoded rather than failing the caller.
func (c *Client) AttachDecodedCall(ctx context.Context, record *relay.MultisigTransaction) *relay.MultisigTransaction {
	if record.DataDecoded != nil {
		return record
	}
	if record.Data == nil || *record.Data == "" || *record.Data == "0x" {
		return record
	}

	data, err := hexutil.Decode(*record.Data)
	if err != nil || len(data) < 4 {
		return record
	}

	contractABI, err := c.abis.ContractABI(ctx, common.HexToAddress(record.To))
	if err != nil || contractABI == nil {
		c.log.Debug("call data left undecoded", "to", record.To, "err", err)
		return record
	}

	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		c.log.Debug("unknown method selector", "to", record.To, "selector", hexutil.Encode(data[:4]))
		return record
	}

	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		c.log.Debug("failed to unpack call arguments", "method", method.Name, "err", err)
		return record
	}

	parameters := make([]relay.DecodedParameter, len(method.Inputs))
	for i, input := range method.Inputs {
		parameters[i] = relay.DecodedParameter{
			Name:  input.Name,
			Type:  input.Type.String(),
			Value: formatArgument(values[i]),
		}
	}

	record.DataDecoded = &relay.DataDecoded{
		Method:     method.Name,
		Parameters: parameters,
	}
	return record
}

// formatArgument renders a decoded ABI value the way the relay does: hex for
// byte-like values, decimal strings for integers.
func formatArgument(value any) string {
	switch v := value.(type) {
	case common.Address:
		return v.Hex()
	case common.Hash:
		return v.Hex()
	case [32]byte:
		return hexutil.Encode(v[:])
	case []byte:
		return hexutil.Encode(v)
	default:
		return fmt.Sprint(v)
	}
}
