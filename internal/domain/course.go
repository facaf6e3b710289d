package domain

// Course представляет документ курса из контент-бэкенда.
// Принадлежит бэкенду, для ядра это неизменяемые входные данные.
type Course struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Price      float64  `json:"price"`
	Currency   string   `json:"currency"`
	Instructor string   `json:"instructor,omitempty"`
	Duration   string   `json:"duration,omitempty"`
	Features   []string `json:"features,omitempty"`
}

// IsFree проверяет, является ли курс бесплатным
func (c Course) IsFree() bool {
	return c.Price <= 0
}

// Learner представляет идентичность слушателя от внешнего провайдера аутентификации.
// Ядро никогда не изменяет эти данные.
type Learner struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// IsAnonymous проверяет, аутентифицирован ли слушатель
func (l Learner) IsAnonymous() bool {
	return l.Email == ""
}
