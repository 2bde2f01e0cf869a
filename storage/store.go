// Package storage owns durable state: voters, committed blocks and reference
// data. The store is the only source of truth for the chain tip; the commit
// path re-validates the tip inside its transaction, so no in-process cache of
// "latest digest" is ever trusted across requests.
package storage

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bharote-backend/ledger"
	"bharote-backend/models"
)

type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and runs
// migrations. TranslateError turns driver unique-constraint failures into
// gorm.ErrDuplicatedKey so the commit path can classify conflicts.
func Open(path string) (*Store, error) {
	dsn := path + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %v", path, err)
	}

	if err := db.AutoMigrate(
		&models.Voter{},
		&models.Block{},
		&models.Party{},
		&models.Constituency{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %v", err)
	}

	return &Store{db: db}, nil
}

// isBusy reports whether err is SQLite lock contention, which the commit path
// treats as a transient sequence conflict.
func isBusy(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// LatestBlock returns the chain tip, or (nil, nil) when the ledger is empty.
func (s *Store) LatestBlock() (*models.Block, error) {
	var tip models.Block
	err := s.db.Order("block_number DESC").First(&tip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chain tip: %v", err)
	}
	return &tip, nil
}

// CommitVote appends a block and flips the voter's has-voted flag as one
// transaction. Both succeed or both fail; a committed block with no flag flip
// (or vice versa) can never be observed.
//
// The transaction re-reads the tip and rejects the commit when the candidate
// was built from a stale observation (ledger.ErrTipConflict), giving
// compare-and-swap semantics on the tip regardless of the caller's earlier
// read. Unique indexes on block number, previous hash and voter reference
// back-stop the same invariants at the constraint level.
func (s *Store) CommitVote(block *models.Block, votedAt time.Time) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var tip models.Block
		err := tx.Order("block_number DESC").First(&tip).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if block.PreviousHash != nil || block.BlockNumber != 1 {
				return ledger.ErrTipConflict
			}
		case err != nil:
			return fmt.Errorf("failed to re-read chain tip: %v", err)
		default:
			if block.PreviousHash == nil ||
				*block.PreviousHash != tip.VoteHash ||
				block.BlockNumber != tip.BlockNumber+1 {
				return ledger.ErrTipConflict
			}
		}

		if err := tx.Create(block).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				var existing int64
				countErr := tx.Model(&models.Block{}).
					Where("voter_ref = ?", block.VoterRef).
					Count(&existing).Error
				if countErr != nil {
					return fmt.Errorf("failed to classify duplicate block: %v", countErr)
				}
				if existing > 0 {
					return ledger.ErrAlreadyVoted
				}
				return ledger.ErrSequenceConflict
			}
			return fmt.Errorf("failed to insert block: %v", err)
		}

		res := tx.Model(&models.Voter{}).
			Where("id = ? AND has_voted = ?", block.VoterRef, false).
			Updates(map[string]interface{}{"has_voted": true, "voted_at": votedAt})
		if res.Error != nil {
			return fmt.Errorf("failed to update voter flag: %v", res.Error)
		}
		if res.RowsAffected == 0 {
			// Concurrent writer flipped the flag first, or the voter is gone.
			return ledger.ErrAlreadyVoted
		}

		return nil
	})
	if isBusy(err) {
		return ledger.ErrSequenceConflict
	}
	return err
}

// BlocksAscending returns the full committed chain in block-number order, the
// shape the verifier replays.
func (s *Store) BlocksAscending() ([]models.Block, error) {
	var blocks []models.Block
	if err := s.db.Order("block_number ASC").Find(&blocks).Error; err != nil {
		return nil, fmt.Errorf("failed to load chain: %v", err)
	}
	return blocks, nil
}

// ListBlocks returns one page of committed blocks, newest first, plus the
// total committed count. page is 1-based.
func (s *Store) ListBlocks(page, limit int) ([]models.Block, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	if err := s.db.Model(&models.Block{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count blocks: %v", err)
	}

	var blocks []models.Block
	err := s.db.Order("block_number DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&blocks).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list blocks: %v", err)
	}
	return blocks, total, nil
}

// BlockByNumber returns the committed block with the given number, or
// (nil, nil) when no such block exists.
func (s *Store) BlockByNumber(number uint64) (*models.Block, error) {
	var block models.Block
	err := s.db.Where("block_number = ?", number).First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load block %d: %v", number, err)
	}
	return &block, nil
}

// ChainLength returns the number of committed blocks.
func (s *Store) ChainLength() (int64, error) {
	var total int64
	if err := s.db.Model(&models.Block{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count blocks: %v", err)
	}
	return total, nil
}

// ResetLedger deletes every committed block and clears all voters' has-voted
// state while preserving the identity records. This is the privileged
// administrative reset; it is never reachable from the vote-casting path.
func (s *Store) ResetLedger() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Block{}).Error; err != nil {
			return fmt.Errorf("failed to delete blocks: %v", err)
		}
		err := tx.Model(&models.Voter{}).
			Where("has_voted = ?", true).
			Updates(map[string]interface{}{"has_voted": false, "voted_at": nil}).Error
		if err != nil {
			return fmt.Errorf("failed to clear voter flags: %v", err)
		}
		log.Printf("Ledger reset: all blocks deleted, voter identities preserved")
		return nil
	})
}
