package handler

import "github.com/talking/chat-server/internal/core/domain"

type errorResponse struct {
	Error string `json:"error"`
}

type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type usersResponse struct {
	Users []*domain.User `json:"users"`
	From  int            `json:"from"`
	Limit int            `json:"limit"`
}

type chatsResponse struct {
	Messages []domain.Message `json:"messages"`
}
