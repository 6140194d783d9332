package rowstream

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"
)

type Repository[K comparable, T any] interface {
	Get(ctx context.Context, id K, dest *T, options ...QueryOption) error
	Select(ctx context.Context, filter map[string]any, dest *[]T, options ...QueryOption) error
	Count(ctx context.Context, filter map[string]any, options ...QueryOption) (int64, error)
	Insert(ctx context.Context, value T, options ...QueryOption) (K, error)
	InsertAll(ctx context.Context, values []T, options ...QueryOption) ([]K, error)
	Delete(ctx context.Context, id []K, options ...QueryOption) error
	CreateTable(ctx context.Context) error
	TableColumns(ctx context.Context) ([]Column, error)
	// FetchPage reads one page of the table outside of any transaction.
	FetchPage(ctx context.Context, req PageRequest) ([]T, error)
	// Iterator streams the whole table page by page.
	Iterator(ctx context.Context, options ...StreamOption) *Stream[T]
	Begin(ctx context.Context) (Transaction, error)
	GetTableDef() SQLTableDef
}

type repository struct {
	Name      string
	tableDef  SQLTableDef
	modelType reflect.Type
	modelTags map[string]int
}

func (r repository) modelTagExists(name string) bool {
	_, ok := r.modelTags[strings.ToUpper(name)]
	return ok
}

// createModelTags maps upper-cased column names to struct field positions,
// naming columns the same way parseModel does.
func createModelTags(model reflect.Type, tag string) map[string]int {
	modelTags := make(map[string]int)
	for i := 0; i < model.NumField(); i++ {
		field := model.Field(i)
		if field.Type == reflect.TypeOf(DBTable{}) || !field.IsExported() {
			continue
		}

		value := field.Tag.Get(tag)
		if value == "-" {
			continue
		}

		name, _, _, _, _ := parseDBTag(value)
		if name == "" {
			name = strcase.ToSnake(field.Name)
		}

		modelTags[strings.ToUpper(name)] = i
	}

	return modelTags
}

// rowValues returns the values of value's fields in the order of columns.
// Auto columns are left out together with their names.
func (r repository) rowValues(value any, columns []ColumnInfo) (names []string, values []any, err error) {
	dataVal := reflect.ValueOf(value)
	if dataVal.Kind() == reflect.Ptr {
		dataVal = dataVal.Elem()
	}

	if dataVal.Type() != r.modelType {
		return nil, nil, fmt.Errorf("value must be of %s type, got %s", r.modelType.Name(), dataVal.Type().Name())
	}

	for _, col := range columns {
		if col.IsAuto {
			continue
		}

		idx, ok := r.modelTags[strings.ToUpper(col.Name)]
		if !ok {
			return nil, nil, fmt.Errorf("column %s has no field in %s", col.Name, r.modelType.Name())
		}

		val := dataVal.Field(idx).Interface()
		if v, ok := val.(driver.Valuer); ok {
			buffVal, err := v.Value()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to get value of column %s: %w", col.Name, err)
			}
			val = buffVal
		}

		names = append(names, col.Name)
		values = append(values, val)
	}

	return names, values, nil
}

func keyOf[K comparable](r repository, value any) K {
	var key K
	idx, ok := r.modelTags[strings.ToUpper(r.tableDef.KeyField)]
	if !ok {
		return key
	}

	dataVal := reflect.ValueOf(value)
	if dataVal.Kind() == reflect.Ptr {
		dataVal = dataVal.Elem()
	}

	field := dataVal.Field(idx)
	if k, ok := field.Interface().(K); ok {
		return k
	}

	keyType := reflect.TypeOf((*K)(nil)).Elem()
	if field.Type().ConvertibleTo(keyType) {
		return field.Convert(keyType).Interface().(K)
	}

	return key
}
