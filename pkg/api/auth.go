package api

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Email    string `json:"email"`    // email пользователя
	Password string `json:"password"` // пароль в открытом виде (только в теле запроса)
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email"`    // email пользователя
	Password string `json:"password"` // пароль в открытом виде
}

// Response представляет единый конверт ответа API
type Response struct {
	Success   bool        `json:"success"`             // успешность запроса
	Message   string      `json:"message"`             // человекочитаемое сообщение
	Data      interface{} `json:"data,omitempty"`      // полезная нагрузка
	Error     string      `json:"error,omitempty"`     // детали ошибки (только в development)
	ErrorCode string      `json:"errorCode,omitempty"` // машиночитаемый код (например ACCOUNT_LOCKED)
}

// Коды ошибок, которые клиент может обрабатывать программно
const (
	CodeAccountLocked  = "ACCOUNT_LOCKED"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInvalidRequest = "INVALID_REQUEST"
)
