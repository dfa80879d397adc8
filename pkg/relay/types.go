package relay

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MultisigTransaction represents a multisig transaction record stored by the
// transaction relay.
type MultisigTransaction struct {
	Safe                  string         `json:"safe"`
	To                    string         `json:"to"`
	Value                 string         `json:"value"`
	Data                  *string        `json:"data"`
	Operation             int            `json:"operation"`
	SafeTxGas             uint64         `json:"safeTxGas"`
	BaseGas               uint64         `json:"baseGas"`
	GasPrice              string         `json:"gasPrice"`
	GasToken              *string        `json:"gasToken"`
	RefundReceiver        *string        `json:"refundReceiver"`
	Nonce                 uint64         `json:"nonce"`
	ExecutionDate         *time.Time     `json:"executionDate"`
	SubmissionDate        time.Time      `json:"submissionDate"`
	TransactionHash       *string        `json:"transactionHash"`
	SafeTxHash            string         `json:"safeTxHash"`
	IsExecuted            bool           `json:"isExecuted"`
	IsSuccessful          *bool          `json:"isSuccessful"`
	Origin                *string        `json:"origin"`
	DataDecoded           *DataDecoded   `json:"dataDecoded"`
	ConfirmationsRequired uint64         `json:"confirmationsRequired"`
	Confirmations         []Confirmation `json:"confirmations"`
}

// Confirmation represents one signer's confirmation on a relay transaction.
type Confirmation struct {
	Owner          string    `json:"owner"`
	SubmissionDate time.Time `json:"submissionDate"`
	Signature      string    `json:"signature"`
	SignatureType  string    `json:"signatureType"`
}

// DataDecoded is the relay's human-readable description of a call.
type DataDecoded struct {
	Method     string             `json:"method"`
	Parameters []DecodedParameter `json:"parameters"`
}

// DecodedParameter is one decoded call argument.
type DecodedParameter struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Param returns the string form of the named parameter.
func (d *DataDecoded) Param(name string) (string, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return fmt.Sprint(p.Value), true
		}
	}
	return "", false
}

// SubmitRequest is the payload for proposing a new multisig transaction to
// the relay.
type SubmitRequest struct {
	Safe                    common.Address `json:"safe"`
	To                      common.Address `json:"to"`
	Value                   string         `json:"value"`
	Data                    *string        `json:"data"`
	Operation               int            `json:"operation"`
	SafeTxGas               uint64         `json:"safeTxGas"`
	BaseGas                 uint64         `json:"baseGas"`
	GasPrice                string         `json:"gasPrice"`
	GasToken                *string        `json:"gasToken"`
	RefundReceiver          *string        `json:"refundReceiver"`
	Nonce                   uint64         `json:"nonce"`
	ContractTransactionHash string         `json:"contractTransactionHash"`
	Sender                  common.Address `json:"sender"`
	Signature               *string        `json:"signature,omitempty"`
	Origin                  string         `json:"origin,omitempty"`
}

// EstimateRequest is the payload for the relay's gas estimation endpoint.
type EstimateRequest struct {
	To        common.Address `json:"to"`
	Value     string         `json:"value"`
	Data      *string        `json:"data"`
	Operation int            `json:"operation"`
}

// Filter narrows a transaction listing.
type Filter struct {
	// NonceGTE only returns transactions with nonce >= the given value.
	NonceGTE *uint64
	// Limit caps the number of returned records; 0 means the relay default.
	Limit int
}
