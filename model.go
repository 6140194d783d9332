package rowstream

// Model lets a row type provide its own table definition instead of having it
// parsed from struct tags.
type Model interface {
	GetTableDef() SQLTableDef
}

// DBTable marks the table a row type maps to, e.g.
//
//	DBTable `name:"user_data" schema:"public"`
type DBTable struct{}

// User is a row of the user_data table.
type User struct {
	DBTable `name:"user_data" db:"-" bson:"-"`
	UserID  string `db:"user_id,key size=36" bson:"user_id"`
	Name    string `db:"name,size=255" bson:"name"`
	Email   string `db:"email,size=255" bson:"email"`
	Age     int    `db:"age" bson:"age"`
}
