// Package notifications delivers post events to connected realtime clients
// and to the optional downstream event sinks.
package notifications

import (
	"encoding/json"
	"fmt"

	"feedhub/internal/models"
)

// Action names the mutation an Event describes.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// EventType is the envelope type of every post event.
const EventType = "posts"

// Event is a single post mutation. Post is set for create and update;
// delete carries only PostID.
type Event struct {
	Action Action
	Post   *models.PostSummary
	PostID uint
}

// Created, Updated and Deleted build the event for a completed mutation.
func Created(p *models.Post) Event {
	s := p.Summary()
	return Event{Action: ActionCreate, Post: &s, PostID: p.ID}
}

func Updated(p *models.Post) Event {
	s := p.Summary()
	return Event{Action: ActionUpdate, Post: &s, PostID: p.ID}
}

func Deleted(postID uint) Event {
	return Event{Action: ActionDelete, PostID: postID}
}

type payload struct {
	Action Action              `json:"action"`
	Post   *models.PostSummary `json:"post,omitempty"`
	PostID uint                `json:"postId,omitempty"`
}

type envelope struct {
	Type    string  `json:"type"`
	Payload payload `json:"payload"`
}

// Encode renders the wire form {"type":"posts","payload":{...}}.
func (e Event) Encode() ([]byte, error) {
	p := payload{Action: e.Action}
	switch e.Action {
	case ActionCreate, ActionUpdate:
		if e.Post == nil {
			return nil, fmt.Errorf("%s event without post", e.Action)
		}
		p.Post = e.Post
	case ActionDelete:
		if e.PostID == 0 {
			return nil, fmt.Errorf("delete event without post id")
		}
		p.PostID = e.PostID
	default:
		return nil, fmt.Errorf("unknown action %q", e.Action)
	}
	return json.Marshal(envelope{Type: EventType, Payload: p})
}
