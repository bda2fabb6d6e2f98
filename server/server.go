package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
	"github.com/gyansingh18/ai-tutor-learning-platform/internal/types"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/ingest"
	"github.com/gyansingh18/ai-tutor-learning-platform/pkg/tutor"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	Port int
}

// Server exposes the tutor over HTTP: document uploads feed the ingestion
// queue, questions go through the retrieval pipeline, and /ws carries an
// interactive chat session.
type Server struct {
	config Config
	tutor  *tutor.Service
	docs   types.DocumentStore
	turns  types.TurnStore
	queue  *ingest.Queue
}

func New(config Config, tutorSvc *tutor.Service, docs types.DocumentStore, turns types.TurnStore, queue *ingest.Queue) *Server {
	return &Server{
		config: config,
		tutor:  tutorSvc,
		docs:   docs,
		turns:  turns,
		queue:  queue,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/documents", s.handleDocuments)
	mux.HandleFunc("/api/questions", s.handleQuestions)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type documentRequest struct {
	TopicID     string `json:"topic_id"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TopicID == "" || req.Content == "" {
		http.Error(w, "topic_id and content are required", http.StatusBadRequest)
		return
	}

	doc := models.Document{
		ID:          uuid.New().String(),
		TopicID:     req.TopicID,
		Title:       req.Title,
		ContentType: req.ContentType,
		Content:     req.Content,
	}

	if err := s.docs.SaveDocument(r.Context(), doc); err != nil {
		log.Printf("failed to save document: %v", err)
		http.Error(w, "failed to save document", http.StatusInternalServerError)
		return
	}

	// Ingestion runs in the background; the upload returns immediately.
	s.queue.Enqueue(doc.ID)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"document_id": doc.ID,
		"status":      "queued",
	})
}

type questionRequest struct {
	UserID    string `json:"user_id"`
	TopicID   string `json:"topic_id"`
	TopicName string `json:"topic_name"`
	Question  string `json:"question"`
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.TopicID == "" || req.Question == "" {
		http.Error(w, "user_id, topic_id and question are required", http.StatusBadRequest)
		return
	}

	turn := models.ConversationTurn{
		ID:       uuid.New().String(),
		UserID:   req.UserID,
		TopicID:  req.TopicID,
		Question: req.Question,
	}
	if err := s.turns.CreateTurn(r.Context(), turn); err != nil {
		log.Printf("failed to create turn: %v", err)
		http.Error(w, "failed to record question", http.StatusInternalServerError)
		return
	}

	answer := s.tutor.Answer(r.Context(), tutor.AnswerRequest{
		UserID:        req.UserID,
		TopicID:       req.TopicID,
		TopicName:     req.TopicName,
		Question:      req.Question,
		ExcludeTurnID: turn.ID,
	})

	if err := s.turns.AttachAnswer(r.Context(), turn.ID, answer); err != nil {
		log.Printf("failed to attach answer to turn %s: %v", turn.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"turn_id": turn.ID,
		"answer":  answer,
	})
}

// wsConn serializes writes: answers for in-flight questions come back from
// separate goroutines, and the underlying connection forbids concurrent
// writers.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer raw.Close()

	conn := &wsConn{conn: raw}

	for {
		_, message, err := raw.ReadMessage()
		if err != nil {
			log.Printf("Error reading message: %v", err)
			break
		}

		var msg wsQuestion
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		go s.handleChatMessage(r.Context(), conn, msg)
	}
}

type wsQuestion struct {
	UserID    string `json:"user_id"`
	TopicID   string `json:"topic_id"`
	TopicName string `json:"topic_name"`
	Question  string `json:"question"`
}

func (s *Server) handleChatMessage(ctx context.Context, conn *wsConn, msg wsQuestion) {
	if msg.UserID == "" || msg.TopicID == "" || msg.Question == "" {
		s.sendMessage(conn, "error", "user_id, topic_id and question are required")
		return
	}

	turn := models.ConversationTurn{
		ID:       uuid.New().String(),
		UserID:   msg.UserID,
		TopicID:  msg.TopicID,
		Question: msg.Question,
	}
	if err := s.turns.CreateTurn(ctx, turn); err != nil {
		log.Printf("failed to create turn: %v", err)
		s.sendMessage(conn, "error", "failed to record question")
		return
	}

	s.sendMessage(conn, "status", "thinking")

	answer := s.tutor.Answer(ctx, tutor.AnswerRequest{
		UserID:        msg.UserID,
		TopicID:       msg.TopicID,
		TopicName:     msg.TopicName,
		Question:      msg.Question,
		ExcludeTurnID: turn.ID,
	})

	if err := s.turns.AttachAnswer(ctx, turn.ID, answer); err != nil {
		log.Printf("failed to attach answer to turn %s: %v", turn.ID, err)
	}

	s.sendMessage(conn, "response", answer)
}

func (s *Server) sendMessage(conn *wsConn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.writeJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
