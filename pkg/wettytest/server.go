// Package wettytest provides an in-process fake of the Wetty backend for
// tests: the REST routes the client consumes plus the push-channel endpoint.
// History pagination uses slice indices as opaque cursors.
package wettytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"Wetty/pkg/models"
)

// Server is a fake Wetty backend bound to an httptest listener.
type Server struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu        sync.Mutex
	chats     map[string][]models.Message
	chatMeta  map[string]models.Chat
	members   map[string][]models.Member
	conns     map[*websocket.Conn]*sync.Mutex
	nextID    int64
	pings     int
	failSends bool
	sends     int
	upgrades  int

	historyDelay   time.Duration
	beforeRequests int
}

// NewServer starts a fake backend.
func NewServer() *Server {
	s := &Server{
		chats:    make(map[string][]models.Message),
		chatMeta: make(map[string]models.Chat),
		members:  make(map[string][]models.Member),
		conns:    make(map[*websocket.Conn]*sync.Mutex),
		nextID:   100,
	}

	r := mux.NewRouter()
	r.Use(s.requireUser)
	r.HandleFunc("/chats", s.handleListChats).Methods(http.MethodGet)
	r.HandleFunc("/chats", s.handleCreateChat).Methods(http.MethodPost)
	r.HandleFunc("/chats/{id}", s.handleGetChat).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}/messages", s.handleListMessages).Methods(http.MethodGet)
	r.HandleFunc("/chats/{id}/messages", s.handleSendMessage).Methods(http.MethodPost)
	r.HandleFunc("/chats/{id}/messages/{mid}", s.handleUpdateMessage).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/chats/{id}/messages/{mid}", s.handleDeleteMessage).Methods(http.MethodDelete)
	r.HandleFunc("/group/{id}/members", s.handleListMembers).Methods(http.MethodGet)
	r.HandleFunc("/group/{id}/members", s.handleAddMember).Methods(http.MethodPost)
	r.HandleFunc("/group/{id}/members/{uid}", s.handleUpdateMember).Methods(http.MethodPut)
	r.HandleFunc("/group/{id}/members/{uid}", s.handleRemoveMember).Methods(http.MethodDelete)
	r.HandleFunc("/_api/ws", s.handleWS)

	s.srv = httptest.NewServer(r)
	return s
}

// URL returns the backend origin.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the server and all push connections down.
func (s *Server) Close() {
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[*websocket.Conn]*sync.Mutex)
	s.mu.Unlock()
	s.srv.Close()
}

// Seed installs a conversation's history, oldest first.
func (s *Server) Seed(chatID string, messages []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = append([]models.Message(nil), messages...)
}

// SeedMembers installs a chat's membership list.
func (s *Server) SeedMembers(chatID string, members []models.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[chatID] = append([]models.Member(nil), members...)
}

// FailSends makes subsequent message POSTs return 500, for rollback tests.
func (s *Server) FailSends(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSends = fail
}

// Sends reports how many message POSTs were accepted.
func (s *Server) Sends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

// Pings reports how many ping frames arrived on the push channel.
func (s *Server) Pings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

// Upgrades reports how many push channels were ever opened.
func (s *Server) Upgrades() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upgrades
}

// SetHistoryDelay makes history fetches sleep before answering, to let tests
// interleave a reset with an in-flight pagination response.
func (s *Server) SetHistoryDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyDelay = d
}

// BeforeRequests reports how many older-direction history fetches arrived.
func (s *Server) BeforeRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beforeRequests
}

// Connections reports how many push channels are open.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Push broadcasts a message frame with the given payload to every open push
// connection.
func (s *Server) Push(payload any) error {
	return s.pushFrame(map[string]any{"type": "message", "payload": payload})
}

// PushRaw broadcasts a raw text frame, valid JSON or not.
func (s *Server) PushRaw(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, wmu := range s.conns {
		wmu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		wmu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// CloseConnections drops every open push connection without stopping the
// server, simulating a network cut.
func (s *Server) CloseConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[*websocket.Conn]*sync.Mutex)
}

func (s *Server) pushFrame(frame any) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.PushRaw(raw)
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_api/ws" && r.Header.Get("X-User-Id") == "" {
			http.Error(w, "Missing or invalid X-User-Id header", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chats := make([]models.ChatListItem, 0, len(s.chatMeta))
	for _, meta := range s.chatMeta {
		chats = append(chats, models.ChatListItem{ID: meta.ID, Name: meta.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats, "next_cursor": nil})
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name *string `json:"name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.nextID++
	chat := models.Chat{
		ID:        s.nextID,
		Name:      body.Name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.chatMeta[strconv.FormatInt(chat.ID, 10)] = chat
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         chat.ID,
		"name":       chat.Name,
		"created_at": chat.CreatedAt,
	})
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	chat, ok := s.chatMeta[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// handleListMessages pages the seeded history. Cursors are indices into the
// oldest-first slice: "before=c" returns [c-max, c), "after=c" returns
// [c, c+max), "around=id" centers on the message, no cursor returns the
// newest page.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	q := r.URL.Query()
	max := 50
	if v := q.Get("max"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			max = n
		}
	}

	s.mu.Lock()
	delay := s.historyDelay
	if q.Get("before") != "" {
		s.beforeRequests++
	}
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.chats[chatID]

	var start, end int
	switch {
	case q.Get("before") != "":
		end, _ = strconv.Atoi(q.Get("before"))
		if end > len(history) {
			end = len(history)
		}
		start = end - max
		if start < 0 {
			start = 0
		}
	case q.Get("after") != "":
		start, _ = strconv.Atoi(q.Get("after"))
		if start > len(history) {
			start = len(history)
		}
		end = start + max
		if end > len(history) {
			end = len(history)
		}
	case q.Get("around") != "":
		idx := -1
		for i, m := range history {
			if m.ID == q.Get("around") {
				idx = i
				break
			}
		}
		if idx == -1 {
			http.Error(w, "message not found", http.StatusNotFound)
			return
		}
		start = idx - max/2
		if start < 0 {
			start = 0
		}
		end = start + max
		if end > len(history) {
			end = len(history)
		}
	default:
		end = len(history)
		start = end - max
		if start < 0 {
			start = 0
		}
	}

	var next, prev *string
	if start > 0 {
		c := strconv.Itoa(start)
		next = &c
	}
	if end < len(history) {
		c := strconv.Itoa(end)
		prev = &c
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages":    history[start:end],
		"next_cursor": next,
		"prev_cursor": prev,
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	var body struct {
		Message           string  `json:"message"`
		MessageType       string  `json:"message_type"`
		ClientGeneratedID string  `json:"client_generated_id"`
		ReplyToID         *string `json:"reply_to_id"`
		ReplyRootID       *string `json:"reply_root_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSends {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	uid, _ := strconv.Atoi(r.Header.Get("X-User-Id"))
	s.nextID++
	s.sends++
	text := body.Message
	msg := models.Message{
		ID:                strconv.FormatInt(s.nextID, 10),
		ChatID:            chatID,
		SenderUID:         uid,
		Message:           &text,
		MessageType:       body.MessageType,
		ClientGeneratedID: body.ClientGeneratedID,
		ReplyToID:         body.ReplyToID,
		ReplyRootID:       body.ReplyRootID,
		CreatedAt:         time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	s.chats[chatID] = append(s.chats[chatID], msg)
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) findMessage(chatID, messageID string) (int, bool) {
	for i, m := range s.chats[chatID] {
		if m.ID == messageID {
			return i, true
		}
	}
	return 0, false
}

func (s *Server) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.findMessage(vars["id"], vars["mid"])
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	msg := s.chats[vars["id"]][idx]
	text := body.Message
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	msg.Message = &text
	msg.UpdatedAt = &now
	s.chats[vars["id"]][idx] = msg
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.findMessage(vars["id"], vars["mid"])
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	msg := s.chats[vars["id"]][idx]
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	msg.Message = nil
	msg.DeletedAt = &now
	s.chats[vars["id"]][idx] = msg
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	s.mu.Lock()
	members := append([]models.Member(nil), s.members[chatID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["id"]
	var body struct {
		UID  int     `json:"uid"`
		Role *string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	role := "member"
	if body.Role != nil {
		role = *body.Role
	}
	s.mu.Lock()
	s.members[chatID] = append(s.members[chatID], models.Member{
		UID:      body.UID,
		Role:     role,
		JoinedAt: time.Now().UTC().Format(time.RFC3339),
	})
	s.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	uid, _ := strconv.Atoi(vars["uid"])
	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.members[vars["id"]] {
		if m.UID == uid {
			s.members[vars["id"]][i].Role = body.Role
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	uid, _ := strconv.Atoi(vars["uid"])
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.members[vars["id"]]
	for i, m := range members {
		if m.UID == uid {
			s.members[vars["id"]] = append(members[:i], members[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, "not found", http.StatusNotFound)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("uid") == "" {
		http.Error(w, "uid required", http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	wmu := &sync.Mutex{}
	s.mu.Lock()
	s.conns[conn] = wmu
	s.upgrades++
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(data, &frame) != nil {
				continue
			}
			if frame.Type == "ping" {
				s.mu.Lock()
				s.pings++
				s.mu.Unlock()
				wmu.Lock()
				err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
				wmu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
}
