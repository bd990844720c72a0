package models

import (
	"fmt"
	"strings"
)

// ValidationError означает отсутствие или неверный формат обязательных полей запроса
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("отсутствуют обязательные поля: %s", strings.Join(e.Fields, ", "))
}

// NotFoundError означает, что запись с указанным идентификатором не существует
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s не найдено", e.Entity, e.ID)
}
