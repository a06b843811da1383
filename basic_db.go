package kvbench

import (
	"math/rand"
	"time"
)

// BasicDB is a no-op adapter that optionally echoes every call and
// simulates backend delay. Useful for smoke-testing a workload
// configuration before pointing it at a real database.
type BasicDB struct {
	*DBBase
	verbose        bool
	simulateDelay  time.Duration
	randomizeDelay bool
	random         *rand.Rand
}

func NewBasicDB() *BasicDB {
	return &BasicDB{
		DBBase: NewDBBase(),
	}
}

func (self *BasicDB) Init() error {
	props := self.GetProperties()
	var err error
	if self.verbose, err = props.GetBool(PropertyBasicDBVerbose, false); err != nil {
		return err
	}
	if self.simulateDelay, err = props.GetSeconds(
		PropertySimulateDelay, 0); err != nil {
		return err
	}
	if self.randomizeDelay, err = props.GetBool(
		PropertyRandomizeDelay, true); err != nil {
		return err
	}
	self.random = rand.New(rand.NewSource(time.Now().UnixNano()))
	return nil
}

func (self *BasicDB) Cleanup() error {
	return nil
}

func (self *BasicDB) delay() {
	if self.simulateDelay <= 0 {
		return
	}
	d := self.simulateDelay
	if self.randomizeDelay {
		d = time.Duration(self.random.Int63n(int64(self.simulateDelay))) + 1
	}
	time.Sleep(d)
}

func (self *BasicDB) Read(table string, key string, fields []string) (KVMap, StatusType) {
	self.delay()
	if self.verbose {
		Infof("READ %s %s %v", table, key, fields)
	}
	return make(KVMap), StatusOK
}

func (self *BasicDB) Scan(table string, startKey string, recordCount int64, fields []string) ([]KVMap, StatusType) {
	self.delay()
	if self.verbose {
		Infof("SCAN %s %s %d %v", table, startKey, recordCount, fields)
	}
	return nil, StatusOK
}

func (self *BasicDB) Update(table string, key string, values KVMap) StatusType {
	self.delay()
	if self.verbose {
		Infof("UPDATE %s %s %d fields", table, key, len(values))
	}
	return StatusOK
}

func (self *BasicDB) Insert(table string, key string, values KVMap) StatusType {
	self.delay()
	if self.verbose {
		Infof("INSERT %s %s %d fields", table, key, len(values))
	}
	return StatusOK
}

func (self *BasicDB) Delete(table string, key string) StatusType {
	self.delay()
	if self.verbose {
		Infof("DELETE %s %s", table, key)
	}
	return StatusOK
}
