// Package clipboard delivers snapshot documents to the system clipboard.
package clipboard

import (
	"github.com/atotto/clipboard"
)

// Copier places a snapshot document on the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service is the default Copier, backed by github.com/atotto/clipboard.
type Service struct{}

// NewService returns a clipboard-backed Copier for snapshot delivery.
func NewService() *Service {
	return &Service{}
}

// Copy places text on the system clipboard, replacing its previous contents.
func (service *Service) Copy(text string) error {
	return clipboard.WriteAll(text)
}

var _ Copier = (*Service)(nil)
