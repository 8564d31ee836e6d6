package indices

import (
	"context"
	"fmt"
	"sync"

	"hirehall/bizerror"
	"hirehall/domain/client"
	"hirehall/session"

	"github.com/sirupsen/logrus"
)

var (
	lock    sync.Mutex
	running bool

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

var (
	SyncBatchSize = 500
)

// ScheduleNewSyncRun starts one background full reindex. Only one run is
// allowed at a time; a second request while running returns false.
func ScheduleNewSyncRun(sec *session.Session) (bool, error) {
	if sec == nil || !sec.IsAdmin() {
		return false, bizerror.ErrForbidden
	}

	lock.Lock()
	if running {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	waitRunning := sync.WaitGroup{}
	waitRunning.Add(1)
	go func() {
		waitRunning.Done()
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		IndicesFullSyncFunc()
	}()
	waitRunning.Wait()
	return true, nil
}

func IndicesFullSync() (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
	}()

	ctx := context.Background()
	page := 1
	for {
		clients, err := client.LoadClientsFunc(page, SyncBatchSize, ctx)
		if err != nil {
			logrus.Warnf("indices fully sync: error on retrieve clients(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
			page++
			continue
		}

		if len(clients) == 0 {
			logrus.Infof("indices fully sync: there are no more clients to index")
			return nil // loop exit
		}

		if err := IndexClients(clients, ctx); err != nil {
			logrus.Warnf("indices fully sync: error on index clients(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
		}
		page++
	}
}
