// errors.go — ошибки бизнес-логики сервисного слоя.
// Обработчики различают их через errors.Is; исходная причина
// оборачивается вторым %w и доступна через errors.As.
package service

import "errors"

var (
	// ErrValidation — ошибка валидации входных данных
	// (пустой поток, неизвестная категория).
	ErrValidation = errors.New("ошибка валидации")
	// ErrNotFound — медиафайл не найден (нет записи или байт).
	ErrNotFound = errors.New("медиафайл не найден")
	// ErrIO — ошибка ввода-вывода при работе с диском или индексом.
	ErrIO = errors.New("ошибка ввода-вывода")
	// ErrReconcileInProgress — сверка уже выполняется.
	ErrReconcileInProgress = errors.New("сверка уже выполняется")
)
