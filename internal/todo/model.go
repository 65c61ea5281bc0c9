package todo

// Todo is keyed by Title. Message is stored in the "msg" column.
type Todo struct {
	Title   string `json:"title" gorm:"column:title;not null;uniqueIndex:idx_todos_title"`
	Message string `json:"message" gorm:"column:msg;not null"`
}

func (Todo) TableName() string {
	return "todos"
}
