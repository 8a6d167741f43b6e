package nft

import "context"

// Argument is one input to a transaction command.
type Argument interface {
	isArgument()
}

// Pure is a BCS-encodable literal. Type is the Move type, e.g. "u64" or "vector<u8>".
type Pure struct {
	Type  string
	Value any
}

// Object references an on-chain object by id.
type Object struct {
	ID string
}

// GasCoin is the coin paying for the transaction.
type GasCoin struct{}

// Result is the output of an earlier command in the same transaction.
type Result struct {
	Index int
}

func (Pure) isArgument()    {}
func (Object) isArgument()  {}
func (GasCoin) isArgument() {}
func (Result) isArgument()  {}

// Bytes encodes s as vector<u8>.
func Bytes(s string) Pure { return Pure{Type: "vector<u8>", Value: []byte(s)} }

// U64 encodes v as u64.
func U64(v uint64) Pure { return Pure{Type: "u64", Value: v} }

// U8 encodes v as u8.
func U8(v uint8) Pure { return Pure{Type: "u8", Value: v} }

// Address encodes a 0x-prefixed account address.
func Address(a string) Pure { return Pure{Type: "address", Value: a} }

// Command is a MoveCall or SplitCoins.
type Command interface {
	isCommand()
}

// MoveCall invokes "<package>::<module>::<function>".
type MoveCall struct {
	Target    string
	Arguments []Argument
}

// SplitCoins splits Amounts off Coin.
type SplitCoins struct {
	Coin    Argument
	Amounts []Argument
}

func (MoveCall) isCommand()   {}
func (SplitCoins) isCommand() {}

// Transaction is an ordered list of commands, built here and handed to a Signer.
type Transaction struct {
	Commands []Command
}

// MoveCall appends a move call and returns its result handle.
func (tx *Transaction) MoveCall(target string, args ...Argument) Result {
	tx.Commands = append(tx.Commands, MoveCall{Target: target, Arguments: args})
	return Result{Index: len(tx.Commands) - 1}
}

// SplitCoins appends a split and returns its result handle.
func (tx *Transaction) SplitCoins(coin Argument, amounts ...Argument) Result {
	tx.Commands = append(tx.Commands, SplitCoins{Coin: coin, Amounts: amounts})
	return Result{Index: len(tx.Commands) - 1}
}

// ExecutionResult is what the wallet reports for an executed transaction.
type ExecutionResult struct {
	Digest string
}

// Signer signs and executes transactions, typically a connected wallet.
type Signer interface {
	SignAndExecute(ctx context.Context, tx *Transaction) (ExecutionResult, error)
}

// ObjectOptions selects which parts of an object a ChainReader returns.
type ObjectOptions struct {
	ShowContent bool
	ShowOwner   bool
	ShowDisplay bool
}

// ObjectData is an object as returned by a ChainReader.
type ObjectData struct {
	ID      string
	Type    string
	Owner   string
	Content map[string]any
	Display map[string]string
}

// ChainReader reads objects from a full node.
type ChainReader interface {
	GetObject(ctx context.Context, id string, opts ObjectOptions) (ObjectData, error)
	// GetOwnedObjects returns objects owned by owner whose type is structType.
	GetOwnedObjects(ctx context.Context, owner, structType string, opts ObjectOptions) ([]ObjectData, error)
}
