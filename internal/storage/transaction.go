package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TMind/SolMDb/internal/storage/repository"
)

// TxFunc runs within a transaction with repositories bound to it.
type TxFunc func(tx *sql.Tx, decks repository.DeckRepository, analyses repository.AnalysisRepository) error

// WithTransaction runs fn in a transaction. It commits on success and rolls
// back on error or panic; a panic is re-raised after the rollback.
func (db *DB) WithTransaction(ctx context.Context, fn TxFunc) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
			}
		} else {
			err = tx.Commit()
			if err != nil {
				err = fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
	}()

	err = fn(tx, repository.NewDeckRepository(tx), repository.NewAnalysisRepository(tx))
	return err
}
