package surreal

import "context"

// TxManager satisfies the transactor contract without opening a storage
// transaction: the record batch goes through one INSERT statement, and the
// progress counter that follows it is eventually consistent by design.
type TxManager struct{}

func NewTxManager() *TxManager { return &TxManager{} }

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
