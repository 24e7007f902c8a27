package models

import "time"

const (
	SenderUser  = "user"
	SenderAgent = "bot"
)

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the successful answer of POST /chat
type ChatResponse struct {
	Answer string `json:"answer"`
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ChatTurn is one line of a conversation as the client displays it
type ChatTurn struct {
	Session string    `json:"session"`
	Seq     uint64    `json:"seq"`
	Sender  string    `json:"sender"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ChatMessage is the role/content pair sent to a language model
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
