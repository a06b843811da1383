package binding

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/hhkbp2/kvbench"
)

const (
	PropertyMysqlHost              = "mysql.host"
	PropertyMysqlHostDefault       = "127.0.0.1"
	PropertyMysqlPort              = "mysql.port"
	PropertyMysqlPortDefault       = "3306"
	PropertyMysqlDatabase          = "mysql.db"
	PropertyMysqlDatabaseDefault   = "db"
	PropertyMysqlUser              = "mysql.user"
	PropertyMysqlUserDefault       = "user"
	PropertyMysqlPassword          = "mysql.password"
	PropertyMysqlPasswordDefault   = "password"
	PropertyMysqlOptions           = "mysql.options"
	PropertyMysqlOptionsDefault    = "charset=utf8"
	PropertyMysqlPrimaryKey        = "mysql.primarykey"
	PropertyMysqlPrimaryKeyDefault = "kvbench_key"
)

// MysqlDB runs the workload against a MySQL table keyed by the
// configured primary key column, one column per field.
type MysqlDB struct {
	*kvbench.DBBase
	primaryKey string
	db         *sql.DB
}

func NewMysqlDB() *MysqlDB {
	return &MysqlDB{
		DBBase: kvbench.NewDBBase(),
	}
}

func (self *MysqlDB) Init() error {
	props := self.GetProperties()
	host := props.GetDefault(PropertyMysqlHost, PropertyMysqlHostDefault)
	port := props.GetDefault(PropertyMysqlPort, PropertyMysqlPortDefault)
	database := props.GetDefault(PropertyMysqlDatabase, PropertyMysqlDatabaseDefault)
	user := props.GetDefault(PropertyMysqlUser, PropertyMysqlUserDefault)
	password := props.GetDefault(PropertyMysqlPassword, PropertyMysqlPasswordDefault)
	options := props.GetDefault(PropertyMysqlOptions, PropertyMysqlOptionsDefault)
	self.primaryKey = props.GetDefault(
		PropertyMysqlPrimaryKey, PropertyMysqlPrimaryKeyDefault)
	sourceName := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s",
		user, password, host, port, database, options)
	db, err := sql.Open("mysql", sourceName)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}
	self.db = db
	return nil
}

func (self *MysqlDB) Cleanup() error {
	if self.db != nil {
		return self.db.Close()
	}
	return nil
}

func fieldList(fields []string) string {
	if len(fields) == 0 {
		return "*"
	}
	return strings.Join(fields, ", ")
}

// rowToKVMap scans the current row of rows into a KVMap using the result
// set's own column list, so "SELECT *" works without knowing the schema.
func rowToKVMap(rows *sql.Rows, columns []string) (kvbench.KVMap, error) {
	raw := make([]sql.RawBytes, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	ret := make(kvbench.KVMap, len(columns))
	for i, column := range columns {
		value := make(kvbench.Binary, len(raw[i]))
		copy(value, raw[i])
		ret[column] = value
	}
	return ret, nil
}

func (self *MysqlDB) Read(table string, key string, fields []string) (kvbench.KVMap, kvbench.StatusType) {
	statement := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		fieldList(fields), table, self.primaryKey)
	rows, err := self.db.Query(statement, key)
	if err != nil {
		return nil, statusOf(err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, kvbench.StatusNotFound
	}
	columns, err := rows.Columns()
	if err != nil {
		return nil, kvbench.StatusError
	}
	ret, err := rowToKVMap(rows, columns)
	if err != nil {
		return nil, kvbench.StatusError
	}
	return ret, kvbench.StatusOK
}

func (self *MysqlDB) Scan(table string, startKey string, recordCount int64, fields []string) ([]kvbench.KVMap, kvbench.StatusType) {
	statement := fmt.Sprintf("SELECT %s FROM %s WHERE %s >= ? ORDER BY %s LIMIT ?",
		fieldList(fields), table, self.primaryKey, self.primaryKey)
	rows, err := self.db.Query(statement, startKey, recordCount)
	if err != nil {
		return nil, statusOf(err)
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, kvbench.StatusError
	}
	ret := make([]kvbench.KVMap, 0, recordCount)
	for rows.Next() {
		m, err := rowToKVMap(rows, columns)
		if err != nil {
			return nil, kvbench.StatusError
		}
		ret = append(ret, m)
	}
	if err := rows.Err(); err != nil {
		return nil, statusOf(err)
	}
	return ret, kvbench.StatusOK
}

func (self *MysqlDB) Update(table string, key string, values kvbench.KVMap) kvbench.StatusType {
	var buf bytes.Buffer
	args := make([]interface{}, 0, len(values)+1)
	for k, v := range values {
		if len(args) > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(k)
		buf.WriteString(" = ?")
		args = append(args, []byte(v))
	}
	args = append(args, key)
	statement := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		table, buf.String(), self.primaryKey)
	result, err := self.db.Exec(statement, args...)
	if err != nil {
		return statusOf(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return kvbench.StatusNotFound
	}
	return kvbench.StatusOK
}

func (self *MysqlDB) Insert(table string, key string, values kvbench.KVMap) kvbench.StatusType {
	var names, placeholders bytes.Buffer
	args := make([]interface{}, 0, len(values)+1)
	names.WriteString(self.primaryKey)
	placeholders.WriteString("?")
	args = append(args, key)
	for k, v := range values {
		names.WriteString(", ")
		names.WriteString(k)
		placeholders.WriteString(", ?")
		args = append(args, []byte(v))
	}
	statement := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, names.String(), placeholders.String())
	if _, err := self.db.Exec(statement, args...); err != nil {
		return statusOf(err)
	}
	return kvbench.StatusOK
}

func (self *MysqlDB) Delete(table string, key string) kvbench.StatusType {
	statement := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		table, self.primaryKey)
	result, err := self.db.Exec(statement, key)
	if err != nil {
		return statusOf(err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return kvbench.StatusNotFound
	}
	return kvbench.StatusOK
}

func statusOf(err error) kvbench.StatusType {
	if err == sql.ErrNoRows {
		return kvbench.StatusNotFound
	}
	if err == sql.ErrConnDone ||
		strings.Contains(err.Error(), "connection refused") {
		return kvbench.StatusServiceUnavailable
	}
	return kvbench.StatusError
}
