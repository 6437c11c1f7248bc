package block

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/voxel-world/internal/logging"
)

// ErrDuplicateIdentifier два конфига с одинаковым строковым идентификатором
var ErrDuplicateIdentifier = errors.New("duplicate block identifier")

// Registry отображение ID блока в его описание. Неизменяем после Initialize.
type Registry struct {
	mu          sync.RWMutex
	initialized bool
	blocks      []Block
	names       []string
	identifiers []string
	ids         map[string]ID
	logger      *logging.Logger
}

// NewRegistry создаёт пустой реестр
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{logger: logger}
}

// Initialize строит реестр: ID 0 - воздух, остальные по порядку начиная с 1.
// Повторный вызов только пишет предупреждение.
func (r *Registry) Initialize(configs []*Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		r.logger.Warn("Реестр блоков уже инициализирован, повторный вызов игнорируется")
		return nil
	}

	blocks := []Block{Air()}
	names := []string{"Air"}
	identifiers := []string{AirIdentifier}
	ids := map[string]ID{AirIdentifier: AirID}

	for i, cfg := range configs {
		if cfg == nil {
			r.logger.Warn("Пустой конфиг блока на позиции %d пропущен", i)
			continue
		}
		if _, exists := ids[cfg.Identifier]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateIdentifier, cfg.Identifier)
		}
		if len(blocks) > int(^ID(0)) {
			return fmt.Errorf("too many blocks: %d", len(configs))
		}

		id := ID(len(blocks))
		b, err := cfg.build(id)
		if err != nil {
			return err
		}
		blocks = append(blocks, b)
		names = append(names, cfg.Name)
		identifiers = append(identifiers, cfg.Identifier)
		ids[cfg.Identifier] = id
	}

	r.blocks = blocks
	r.names = names
	r.identifiers = identifiers
	r.ids = ids
	r.initialized = true

	r.logger.Info("Реестр блоков инициализирован: %d блоков", len(blocks))
	return nil
}

// IsInitialized проверяет, построен ли реестр
func (r *Registry) IsInitialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// Get возвращает блок по ID; неизвестный ID или неинициализированный реестр дают воздух
func (r *Registry) Get(id ID) Block {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.initialized {
		r.logger.Error("Запрос блока %d до инициализации реестра", id)
		return Air()
	}
	if int(id) >= len(r.blocks) {
		r.logger.Error("Неизвестный ID блока %d", id)
		return Air()
	}
	return r.blocks[id]
}

// GetByIdentifier возвращает блок по строковому идентификатору
func (r *Registry) GetByIdentifier(identifier string) (Block, bool) {
	id, ok := r.ID(identifier)
	if !ok {
		return Air(), false
	}
	return r.Get(id), true
}

// ID возвращает ID по строковому идентификатору
func (r *Registry) ID(identifier string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.initialized {
		r.logger.Error("Запрос идентификатора %q до инициализации реестра", identifier)
		return AirID, false
	}
	id, ok := r.ids[identifier]
	return id, ok
}

// Identifier возвращает строковый идентификатор блока
func (r *Registry) Identifier(id ID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.identifiers) {
		return "", false
	}
	return r.identifiers[id], true
}

// Name возвращает отображаемое имя блока
func (r *Registry) Name(id ID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.names) {
		return ""
	}
	return r.names[id]
}

// Palette возвращает полную палитру ID -> идентификатор
func (r *Registry) Palette() map[ID]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	palette := make(map[ID]string, len(r.identifiers))
	for i, ident := range r.identifiers {
		palette[ID(i)] = ident
	}
	return palette
}

// Identifiers возвращает идентификаторы в порядке ID
func (r *Registry) Identifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.identifiers))
	copy(out, r.identifiers)
	return out
}

// SortedIdentifiers возвращает идентификаторы без воздуха в алфавитном порядке
func (r *Registry) SortedIdentifiers() []string {
	out := r.Identifiers()
	if len(out) > 0 {
		out = out[1:]
	}
	sort.Strings(out)
	return out
}

// Table возвращает таблицу блоков, индексируемую ID. Срез только для чтения:
// его получают фоновые задачи, поэтому реестр никогда не изменяет его на месте.
func (r *Registry) Table() []Block {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.initialized {
		return []Block{Air()}
	}
	return r.blocks
}

// Len количество блоков вместе с воздухом
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blocks)
}

// Dispose освобождает реестр; безопасно вызывать до Initialize
func (r *Registry) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = nil
	r.names = nil
	r.identifiers = nil
	r.ids = nil
	r.initialized = false
}
