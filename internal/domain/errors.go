package domain

import "errors"

var (
	ErrNotFound           = errors.New("не найдено")
	ErrAlreadyExists      = errors.New("уже существует")
	ErrForbidden          = errors.New("доступ запрещен")
	ErrInvalidCredentials = errors.New("неверный логин или пароль")
	ErrAccountBlocked     = errors.New("аккаунт заблокирован")
	ErrAccountPending     = errors.New("аккаунт ожидает подтверждения администратором")
	ErrNotVerified        = errors.New("email не подтвержден")
	ErrInvalidToken       = errors.New("недействительный токен")
	ErrInvalidOTP         = errors.New("неверный или просроченный код подтверждения")
	ErrTooManyAttempts    = errors.New("превышено количество попыток")
	ErrInvalidDate        = errors.New("неверный формат даты, ожидается YYYY-MM-DD")
	ErrOutsideHorizon     = errors.New("дата вне допустимого периода записи")
	ErrSlotUnavailable    = errors.New("выбранный слот недоступен")
	ErrInvalidSlot        = errors.New("неизвестный день недели или номер слота")
	ErrSlotTaken          = errors.New("выбранный слот времени уже занят")
	ErrInvalidStatus      = errors.New("недопустимый переход статуса")
	ErrStorageDisabled    = errors.New("файловое хранилище не настроено")
	ErrInvalidInput       = errors.New("некорректные данные")
)
