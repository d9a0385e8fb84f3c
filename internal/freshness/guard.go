// Package freshness écarte les réponses périmées : lorsqu'un utilisateur
// relance le même écran (autre client, autre période), la requête précédente
// encore en vol est annulée et son résultat, s'il arrive, est rejeté.
package freshness

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded signale qu'une requête plus récente a pris la place de celle-ci.
var ErrSuperseded = errors.New("requête remplacée par une plus récente")

type slot struct {
	generation uint64
	cancel     context.CancelCauseFunc
}

// Guard attribue des générations uniques (compteur global) par clé
// utilisateur + écran.
type Guard struct {
	mu    sync.Mutex
	next  uint64
	slots map[string]*slot
}

func NewGuard() *Guard {
	return &Guard{slots: make(map[string]*slot)}
}

type Ticket struct {
	guard      *Guard
	key        string
	generation uint64
	cancel     context.CancelCauseFunc
}

// Begin ouvre une nouvelle génération pour key et annule la précédente.
// Le contexte renvoyé doit porter tous les chargements de la requête.
func (g *Guard) Begin(parent context.Context, key string) (*Ticket, context.Context) {
	ctx, cancel := context.WithCancelCause(parent)

	g.mu.Lock()
	s, ok := g.slots[key]
	if !ok {
		s = &slot{}
		g.slots[key] = s
	} else if s.cancel != nil {
		s.cancel(ErrSuperseded)
	}
	g.next++
	s.generation = g.next
	s.cancel = cancel
	gen := s.generation
	g.mu.Unlock()

	return &Ticket{guard: g, key: key, generation: gen, cancel: cancel}, ctx
}

func (t *Ticket) Generation() uint64 { return t.generation }

// Current indique si aucune génération plus récente n'a démarré.
func (t *Ticket) Current() bool {
	t.guard.mu.Lock()
	defer t.guard.mu.Unlock()
	s, ok := t.guard.slots[t.key]
	return ok && s.generation == t.generation
}

// Done libère le ticket. Le créneau n'est supprimé que s'il appartient encore à ce ticket.
func (t *Ticket) Done() {
	t.cancel(nil)

	t.guard.mu.Lock()
	defer t.guard.mu.Unlock()
	if s, ok := t.guard.slots[t.key]; ok && s.generation == t.generation {
		delete(t.guard.slots, t.key)
	}
}

// Err renvoie ErrSuperseded si le ticket est périmé, sinon nil.
func (t *Ticket) Err() error {
	if !t.Current() {
		return ErrSuperseded
	}
	return nil
}
