package rowstream

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
)

type SQLTableDef struct {
	Schema    string
	Name      string
	KeyField  string
	Columns   []ColumnInfo
	CreateDDL string
}

func (td SQLTableDef) ColumnNames() []string {
	return sliceMap(td.Columns, func(val ColumnInfo) string {
		return val.Name
	})
}

func (td SQLTableDef) FullTableName() string {
	name := td.Name
	if td.Schema != "" {
		name = fmt.Sprintf("%s.%s", td.Schema, td.Name)
	}
	return name
}

type ColumnInfo struct {
	Name      string
	Type      reflect.Type
	Size      int
	IsAuto    bool
	IsKey     bool
	AllowNull bool
}

// Column is a column as reported by the database itself.
type Column struct {
	ColumnName string `db:"column_name"`
	DataType   string `db:"data_type"`
}

// createSQLTableDef builds the table definition of T, either from its Model
// implementation or from its struct tags. The DDL is generated for dialect.
func createSQLTableDef[T any](dialect Dialect) (SQLTableDef, error) {
	var entity T
	mval := reflect.ValueOf(&entity).Elem()

	if model, isModel := mval.Interface().(Model); isModel {
		return model.GetTableDef(), nil
	}

	if mval.Kind() != reflect.Struct {
		return SQLTableDef{}, fmt.Errorf("model must be a struct, got %s", mval.Kind())
	}

	schema, table, key, colInfos, err := parseModel(mval.Type())
	if err != nil {
		return SQLTableDef{}, err
	}

	if table == "" {
		table = strcase.ToSnake(mval.Type().Name())
	}

	tb := SQLTableDef{
		Schema:   schema,
		Name:     table,
		KeyField: key,
		Columns:  colInfos,
	}

	tb.CreateDDL, err = dialect.createTableDDL(tb)
	if err != nil {
		return SQLTableDef{}, err
	}

	return tb, nil
}

func parseModel(model reflect.Type) (schema, table, key string, cols []ColumnInfo, err error) {
	for i := 0; i < model.NumField(); i++ {
		field := model.Field(i)
		if field.Type == reflect.TypeOf(DBTable{}) {
			schema = field.Tag.Get("schema")
			table = field.Tag.Get("name")
			continue
		}

		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "-" {
			continue
		}

		name, size, isAuto, isKey, allowNull := parseDBTag(tag)
		if name == "" {
			name = strcase.ToSnake(field.Name)
		}

		if isKey {
			if key != "" {
				err = fmt.Errorf("cannot have more than 1 key, found %s and %s", key, name)
				return
			}
			key = name
		}

		cols = append(cols, ColumnInfo{
			Name:      name,
			Type:      field.Type,
			Size:      size,
			AllowNull: allowNull,
			IsAuto:    isAuto,
			IsKey:     isKey,
		})
	}

	if len(cols) == 0 {
		err = fmt.Errorf("model %s has no columns", model.Name())
	}

	return
}

// parseDBTag parses tags of the form `db:"name,key size=36 allownull auto"`.
func parseDBTag(value string) (name string, size int, isAuto bool, isKey bool, allowNull bool) {
	tagArr := strings.SplitN(value, ",", 2)

	checkBool := func(key string, tagarr []string) bool {
		bval := false
		skey := strings.TrimSpace(tagarr[0])
		if strings.EqualFold(skey, key) {
			bval = true
		}

		if bval && len(tagarr) > 1 {
			sval := strings.TrimSpace(tagarr[1])
			if strings.EqualFold(sval, "false") {
				bval = false
			}
		}

		return bval
	}

	name = strings.TrimSpace(tagArr[0])
	if len(tagArr) > 1 {
		for _, v := range strings.Fields(tagArr[1]) {
			varr := strings.Split(v, "=")
			key := strings.TrimSpace(varr[0])

			switch {
			case checkBool("auto", varr):
				isAuto = true
			case checkBool("key", varr):
				isKey = true
			case checkBool("allownull", varr):
				allowNull = true
			case strings.EqualFold(key, "size") && len(varr) > 1:
				size, _ = strconv.Atoi(varr[1])
			}
		}
	}

	if isKey {
		allowNull = false
	}

	return
}
