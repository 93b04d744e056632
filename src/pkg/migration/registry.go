package migration

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	schemas    = make(map[DatabaseType]*DatabaseSchema)
)

// RegisterSchema 注册数据库模式，同一类型只能注册一次
func RegisterSchema(schema *DatabaseSchema) error {
	if schema == nil {
		return fmt.Errorf("schema cannot be nil")
	}
	if schema.Type == "" {
		return fmt.Errorf("schema type cannot be empty")
	}
	if schema.MigrationSource == nil {
		return fmt.Errorf("schema %s has no migration source", schema.Type)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := schemas[schema.Type]; ok {
		return fmt.Errorf("schema %s already registered", schema.Type)
	}
	schemas[schema.Type] = schema
	return nil
}

// MustRegisterSchema 供包的 init 使用
func MustRegisterSchema(schema *DatabaseSchema) {
	if err := RegisterSchema(schema); err != nil {
		panic(err)
	}
}

func GetSchema(dbType DatabaseType) (*DatabaseSchema, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := schemas[dbType]
	if !ok {
		return nil, fmt.Errorf("schema %s not registered", dbType)
	}
	return s, nil
}

func ListSchemas() []DatabaseType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]DatabaseType, 0, len(schemas))
	for t := range schemas {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
