// Package matrix maintains the 5-ary spillover tree. Placement is
// breadth-first from the sponsor; a node's child set is read under lock and
// the (parent, position) unique index backstops the claim, so two concurrent
// placements can never take the same slot.
package matrix

import (
	"errors"

	"refmart/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoOpenSlot = errors.New("matrix placement: no open slot reachable from sponsor")

const MaxChildren = 5

// Place assigns the account a matrix parent, position and depth, spilling
// over breadth-first when the sponsor is full. Idempotent: an already-placed
// account keeps its slot. Returns the accepting parent, or nil when the
// account roots a new tree (no sponsor).
func Place(tx *gorm.DB, account *models.Account, sponsor *models.Account) (*models.Account, error) {
	if account.Placed() {
		var parent models.Account
		if err := tx.First(&parent, *account.MatrixParentID).Error; err != nil {
			return nil, err
		}
		return &parent, nil
	}

	if sponsor == nil {
		// First account of a tree: depth 0, no parent.
		return nil, tx.Model(account).Update("matrix_depth", 0).Error
	}
	if sponsor.ID == account.ID {
		return nil, ErrNoOpenSlot
	}

	queue := []uint{sponsor.ID}
	visited := map[uint]bool{account.ID: true} // a node is never its own ancestor

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]
		if visited[nodeID] {
			// Revisiting means the parent links form a cycle; the tree is
			// corrupted and placement must not guess a slot.
			return nil, ErrNoOpenSlot
		}
		visited[nodeID] = true

		node, children, err := lockNode(tx, nodeID)
		if err != nil {
			return nil, err
		}

		if pos, ok := openSlot(children); ok {
			account.MatrixParentID = &node.ID
			account.MatrixPosition = &pos
			account.MatrixDepth = node.MatrixDepth + 1
			err := tx.Model(account).Updates(map[string]any{
				"matrix_parent_id": account.MatrixParentID,
				"matrix_position":  account.MatrixPosition,
				"matrix_depth":     account.MatrixDepth,
			}).Error
			if err != nil {
				return nil, err
			}
			return node, nil
		}

		for _, c := range children {
			if c.ID == account.ID {
				continue
			}
			queue = append(queue, c.ID)
		}
	}

	return nil, ErrNoOpenSlot
}

// lockNode pins the frontier node's row so the child-count read and the slot
// claim act as one check-and-increment against concurrent placements.
func lockNode(tx *gorm.DB, nodeID uint) (*models.Account, []models.Account, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var node models.Account
	if err := q.First(&node, nodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNoOpenSlot
		}
		return nil, nil, err
	}

	var children []models.Account
	err := tx.Where("matrix_parent_id = ?", nodeID).
		Order("matrix_position ASC").Find(&children).Error
	if err != nil {
		return nil, nil, err
	}
	return &node, children, nil
}

// openSlot picks the lowest unused position in {1..5}. Gap-filling rather
// than count+1 keeps placement correct even after manual repairs left holes.
func openSlot(children []models.Account) (int, bool) {
	if len(children) >= MaxChildren {
		return 0, false
	}
	used := [MaxChildren + 1]bool{}
	for _, c := range children {
		if c.MatrixPosition != nil && *c.MatrixPosition >= 1 && *c.MatrixPosition <= MaxChildren {
			used[*c.MatrixPosition] = true
		}
	}
	for pos := 1; pos <= MaxChildren; pos++ {
		if !used[pos] {
			return pos, true
		}
	}
	return 0, false
}
