package transport

import (
	"github.com/AnYiFan117/chat-room/internal/config"
	"github.com/AnYiFan117/chat-room/internal/crdt"
	"github.com/AnYiFan117/chat-room/internal/session"
	"github.com/AnYiFan117/chat-room/internal/signal"
)

// NewOpener returns the session-layer factory: each call opens a fresh
// document sited at the local peer id and a provider connected through the
// endpoints resolved for that room.
func NewOpener(cfg *config.Config, peerID string) session.OpenFunc {
	return func(roomID string) (session.Document, session.Provider, error) {
		doc := crdt.NewDoc(peerID)
		endpoints := signal.ResolveEndpoints(cfg, roomID)
		ice := signal.ResolveICEServers(cfg)
		provider := Connect(doc, endpoints, ice, roomID)
		return docHandle{doc}, provider, nil
	}
}

// docHandle adapts *crdt.Doc to the interfaces the session layer consumes.
type docHandle struct {
	doc *crdt.Doc
}

func (h docHandle) Log(name string) session.SharedLog { return h.doc.Log(name) }
func (h docHandle) Awareness() session.Awareness      { return h.doc.Awareness() }
func (h docHandle) Destroy()                          { h.doc.Destroy() }
