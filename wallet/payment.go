package wallet

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	TransferFunction = "0x1::aptos_account::transfer"

	// SmallestUnitExp is the number of decimal places between a coin and its smallest unit.
	SmallestUnitExp = 8
)

// Payload is an entry-function call as the wallet expects it.
type Payload struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// TransferPayload pays amount smallest units to recipient.
func TransferPayload(recipient string, amount int64) Payload {
	return Payload{
		Function:      TransferFunction,
		TypeArguments: []string{},
		Arguments:     []any{recipient, amount},
	}
}

// ToSmallestUnit computes round(total * 10^8) exactly, rounding half away from zero.
func ToSmallestUnit(total decimal.Decimal) (int64, error) {
	if total.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", total)
	}
	units := total.Shift(SmallestUnitExp).Round(0)
	bi := units.BigInt()
	if !bi.IsInt64() {
		return 0, fmt.Errorf("amount %s overflows smallest unit", total)
	}
	return bi.Int64(), nil
}
