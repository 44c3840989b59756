package ps

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction describes one history commit.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

// Latest returns the most recent commit, or the zero Transaction if there is
// none yet.
func (h *History) Latest() Transaction {
	if !h.IsInitialized() {
		return Transaction{}
	}

	headRef, err := h.repo.Head()
	if err != nil || headRef == nil {
		// No commits yet
		return Transaction{}
	}

	commit, err := h.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	return toTransaction(commit)
}

// Since returns the commits made at or after asof, newest first.
func (h *History) Since(asof time.Time) []Transaction {
	if !h.IsInitialized() {
		return nil
	}
	if _, err := h.repo.Head(); err != nil {
		return nil
	}

	cIter, err := h.repo.Log(&git.LogOptions{
		Since: &asof,
	})
	if err != nil {
		return nil
	}

	var transactions []Transaction
	_ = cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, toTransaction(c))
		return nil
	})

	return transactions
}

func toTransaction(c *object.Commit) Transaction {
	author := ""
	if c.Author.Name != "" || c.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
	}
	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  author,
		Message: c.Message,
	}
}
