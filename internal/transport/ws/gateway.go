// Package ws is the connection gateway: it accepts persistent client
// connections, tracks room membership per article, applies mutation requests
// through the article service and broadcasts the result to the room.
//
// Room state is owned by a single hub goroutine fed by a command channel,
// so per-room broadcast order is the order mutations complete and no locks
// guard the membership maps.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/article-live-api/internal/application/article"
	"github.com/article-live-api/internal/domain"
	"github.com/article-live-api/internal/pkg/bus"
	"github.com/article-live-api/internal/pkg/validate"
	"github.com/article-live-api/internal/transport/http/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 32
)

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opJoin
	opBroadcast
)

type command struct {
	op   opKind
	c    *client
	room string
	msg  []byte
}

// Gateway owns all rooms for this process. Construct with New, start with
// Start, stop with Stop; it is injected into the HTTP router, never a
// package global.
type Gateway struct {
	articles article.Service
	events   *bus.Bus

	upgrader websocket.Upgrader
	commands chan command

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func New(articles article.Service, events *bus.Bus, allowedOrigins []string) *Gateway {
	return &Gateway{
		articles: articles,
		events:   events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		commands: make(chan command, 256),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	set := map[string]struct{}{}
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

// Start launches the hub goroutine.
func (g *Gateway) Start() {
	go g.run()
}

// Stop closes every connection and waits for the hub to drain.
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() { close(g.stopCh) })
	<-g.doneCh
}

func (g *Gateway) run() {
	defer close(g.doneCh)
	rooms := map[string]map[*client]struct{}{}
	joined := map[*client]map[string]struct{}{}

	// drop signals teardown on the client's done channel. send is never
	// closed: the readPump may be mid-mutation and about to write an ack,
	// and a send on a closed channel would panic the process.
	drop := func(c *client) {
		for room := range joined[c] {
			delete(rooms[room], c)
			if len(rooms[room]) == 0 {
				delete(rooms, room)
			}
		}
		delete(joined, c)
		close(c.done)
	}

	for {
		select {
		case <-g.stopCh:
			for c := range joined {
				drop(c)
			}
			return
		case cmd := <-g.commands:
			switch cmd.op {
			case opRegister:
				joined[cmd.c] = map[string]struct{}{}
			case opUnregister:
				if _, ok := joined[cmd.c]; ok {
					drop(cmd.c)
				}
			case opJoin:
				if members, ok := joined[cmd.c]; ok {
					// Re-joining the same room is a no-op.
					members[cmd.room] = struct{}{}
					if rooms[cmd.room] == nil {
						rooms[cmd.room] = map[*client]struct{}{}
					}
					rooms[cmd.room][cmd.c] = struct{}{}
				}
			case opBroadcast:
				for c := range rooms[cmd.room] {
					select {
					case c.send <- cmd.msg:
					default:
						// A member that can't keep up is dropped rather
						// than stalling the room.
						drop(c)
						c.conn.Close()
					}
				}
			}
		}
	}
}

func (g *Gateway) send(cmd command) {
	select {
	case g.commands <- cmd:
	case <-g.stopCh:
	}
}

func (g *Gateway) broadcast(room string, event string, a *domain.Article) {
	msg, err := json.Marshal(Broadcast{Event: event, Article: a})
	if err != nil {
		slog.Error("marshal broadcast", "err", err)
		return
	}
	g.send(command{op: opBroadcast, room: room, msg: msg})
}

// Handle upgrades an authenticated HTTP request into a gateway connection.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{
		g:        g,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		userID:   claims.UserID,
		username: claims.Username,
	}
	g.send(command{op: opRegister, c: c})
	go c.writePump()
	go c.readPump()
}

func roomKey(articleID string) string {
	return "article:" + articleID
}

// client is one gateway connection. done is closed by the hub when the
// client is dropped; send stays open for the lifetime of the client so a
// readPump mid-mutation can always attempt a write.
type client struct {
	g        *Gateway
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	userID   string
	username string
}

func (c *client) readPump() {
	defer func() {
		c.g.send(command{op: opUnregister, c: c})
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read", "err", err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.write(ErrorEvent{Event: EventError, Message: "malformed frame"})
			continue
		}
		c.handle(f)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write serializes v onto the outbound channel. Drops the message if the
// connection is being torn down or the buffer is full; the channel itself
// is never closed, so this is always safe to call from the readPump.
func (c *client) write(v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal outbound frame", "err", err)
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) handle(f Frame) {
	switch f.Event {
	case EventJoinArticle:
		var p JoinPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil || validate.Struct(p) != nil {
			// join is fire-and-forget, a bad payload gets no ack.
			c.write(ErrorEvent{Event: EventError, Message: "invalid join payload"})
			return
		}
		c.g.send(command{op: opJoin, c: c, room: roomKey(p.ArticleID)})
	case EventNewComment, EventDeleteComment, EventNewReply, EventDeleteReply, EventToggleLike:
		c.handleMutation(f)
	default:
		c.write(ErrorEvent{Event: EventError, Message: "unknown event: " + f.Event})
	}
}

func (c *client) handleMutation(f Frame) {
	var p MutationPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		c.fail(f, "invalid payload")
		return
	}
	if err := validate.Struct(p); err != nil {
		c.fail(f, err.Error())
		return
	}
	// The actor is the authenticated user; a frame claiming another
	// identity is rejected.
	if p.UserID != "" && p.UserID != c.userID {
		c.fail(f, "user mismatch")
		return
	}

	a, broadcastEvent, kind, owner, err := c.mutate(context.Background(), f.Event, p)
	if err != nil {
		c.fail(f, err.Error())
		return
	}

	c.write(Ack{Event: EventAck, Ref: f.Ref, Success: true, Message: "ok", Article: a})
	c.g.broadcast(roomKey(p.ArticleID), broadcastEvent, a)
	c.publish(kind, a, owner)
}

// mutate applies the requested operation and reports the broadcast event
// name plus the notification kind and recipient owner (empty when the
// mutation produces no notification). Mutations run on a background
// context: a disconnect removes the client from its rooms, but an already
// dispatched mutation completes regardless.
func (c *client) mutate(ctx context.Context, event string, p MutationPayload) (*domain.Article, string, domain.EventKind, string, error) {
	switch event {
	case EventNewComment:
		a, err := c.g.articles.AddComment(ctx, p.ArticleID, c.userID, p.CommentText)
		if err != nil {
			return nil, "", "", "", err
		}
		return a, EventCommentAdded, domain.KindComment, articleOwner(a), nil

	case EventDeleteComment:
		a, err := c.g.articles.DeleteComment(ctx, p.ArticleID, c.userID, p.CommentID)
		if err != nil {
			return nil, "", "", "", err
		}
		return a, EventCommentDeleted, "", "", nil

	case EventNewReply:
		a, err := c.g.articles.AddReply(ctx, p.ArticleID, p.CommentID, c.userID, p.ReplyText)
		if err != nil {
			return nil, "", "", "", err
		}
		owner := ""
		if t := a.Thread(p.CommentID); t != nil && t.Author != nil {
			owner = t.Author.Username
		}
		return a, EventReplyAdded, domain.KindCommentReply, owner, nil

	case EventDeleteReply:
		a, err := c.g.articles.DeleteReply(ctx, p.ArticleID, p.CommentID, p.ReplyID)
		if err != nil {
			return nil, "", "", "", err
		}
		return a, EventReplyDeleted, "", "", nil

	default: // EventToggleLike
		a, err := c.g.articles.ToggleLike(ctx, p.ArticleID, c.userID)
		if err != nil {
			return nil, "", "", "", err
		}
		// Only a like, not its undo, notifies the author.
		if a.HasLike(c.userID) {
			return a, EventLikeUpdated, domain.KindArticleLike, articleOwner(a), nil
		}
		return a, EventLikeUpdated, "", "", nil
	}
}

func articleOwner(a *domain.Article) string {
	if a.Author != nil {
		return a.Author.Username
	}
	return ""
}

func (c *client) fail(f Frame, msg string) {
	c.write(Ack{Event: EventAck, Ref: f.Ref, Success: false, Error: msg})
	c.write(ErrorEvent{Event: EventError, Message: msg})
}

func (c *client) publish(kind domain.EventKind, a *domain.Article, owner string) {
	if kind == "" || owner == "" {
		return
	}
	subj := domain.Subject{
		ActorID:       c.userID,
		ActorUsername: c.username,
		Title:         a.Title,
		Category:      a.Category,
		Slug:          a.Slug,
		Image:         a.Image,
		OwnerUsername: owner,
	}
	if p := findProfile(a, c.userID); p != nil {
		subj.ActorAvatar = p.Avatar
	}
	c.g.events.Publish(domain.Event{Kind: kind, Subject: subj})
}

// findProfile returns the hydrated profile for userID if it appears
// anywhere in the aggregate.
func findProfile(a *domain.Article, userID string) *domain.Profile {
	if a.Author != nil && a.Author.UserID == userID {
		return a.Author
	}
	for i := range a.Comments {
		if p := a.Comments[i].Author; p != nil && p.UserID == userID {
			return p
		}
		for j := range a.Comments[i].Replies {
			if p := a.Comments[i].Replies[j].Author; p != nil && p.UserID == userID {
				return p
			}
		}
	}
	return nil
}
