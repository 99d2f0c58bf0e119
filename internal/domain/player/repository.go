package player

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE INTERFACE
// Контракт хранилища прогресса. Реализации находятся в
// infrastructure/persistence (file - по умолчанию, postgres - опционально).
// ══════════════════════════════════════════════════════════════════════════════

// MutateFunc применяет изменение к записи участника. Возвращённая ошибка
// отменяет изменение целиком.
type MutateFunc func(state *State) error

// ViewFunc читает запись участника без изменения.
type ViewFunc func(state *State) error

// Store определяет операции над таблицей прогресса.
//
// Модель конкурентности: операции над одним user_id сериализуются
// (блокировка на ключ), операции над разными ключами идут параллельно.
type Store interface {
	// GetOrCreate возвращает копию записи участника, лениво создавая её
	// со значениями по умолчанию при первом обращении.
	// Непустое имя обновляет отображаемое имя существующей записи
	// (смена имени в Telegram).
	GetOrCreate(ctx context.Context, userID int64, name string) (*State, error)

	// View выполняет fn на снимке записи под блокировкой ключа.
	// Возвращает ErrPlayerNotFound, если записи нет.
	View(ctx context.Context, userID int64, fn ViewFunc) error

	// Mutate - атомарная единица "прочитать-изменить-сохранить".
	// fn выполняется на копии записи под блокировкой ключа; ошибка fn
	// отменяет операцию без частичных изменений. Ошибка сохранения
	// возвращается вызывающему, но изменение в памяти сохраняется.
	// Запись создаётся лениво, если её ещё нет.
	Mutate(ctx context.Context, userID int64, fn MutateFunc) error

	// All возвращает снимок всех записей (для лидерборда и админки).
	All(ctx context.Context) ([]*State, error)

	// Load загружает таблицу из носителя. Отсутствие или порча данных
	// не фатальны: стартуем с пустой таблицы.
	Load(ctx context.Context) error

	// Persist сбрасывает всю таблицу на носитель атомарно.
	Persist(ctx context.Context) error
}
