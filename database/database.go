// Copyright 2021-2026
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// types

type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
}

var (
	ErrNotConnected = errors.New("database is not connected")
)

// Private

var (
	pool             PgxIface
	openTransactions map[string]string
	trxMu            sync.Mutex
)

func trackTransaction(id, caller string) {
	trxMu.Lock()
	defer trxMu.Unlock()
	openTransactions[id] = caller
}

func untrackTransaction(id string) {
	trxMu.Lock()
	defer trxMu.Unlock()
	delete(openTransactions, id)
}

// Public

func SetPool(myPool PgxIface) {
	trxMu.Lock()
	openTransactions = make(map[string]string)
	trxMu.Unlock()
	pool = myPool
}

// Enabled reports whether run persistence is configured
func Enabled() bool {
	return viper.GetString("database.url") != ""
}

func Connect(ctx context.Context) error {
	myPool, err := pgxpool.Connect(ctx, viper.GetString("database.url"))
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to pool")
		return err
	}
	if err = myPool.Ping(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not ping database server")
		return err
	}
	SetPool(myPool)
	return nil
}

// LogOpenTransactions writes an INFO log for each open transaction
func LogOpenTransactions() {
	trxMu.Lock()
	defer trxMu.Unlock()
	for k, v := range openTransactions {
		log.Info().Str("TrxId", k).Str("Caller", v).Msg("open transaction")
	}
}

// OpenTransactions returns the number of transactions that have been started but neither committed nor rolled back
func OpenTransactions() int {
	trxMu.Lock()
	defer trxMu.Unlock()
	return len(openTransactions)
}

// Trx starts a tracked transaction
func Trx(ctx context.Context) (pgx.Tx, error) {
	if pool == nil {
		return nil, ErrNotConnected
	}

	trx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	// record transactions in openTransaction log
	_, file, lineno, ok := runtime.Caller(1)
	caller := fmt.Sprintf("[%v] %s:%d", ok, file, lineno)
	trxID := uuid.New().String()
	trackTransaction(trxID, caller)

	return &TrackedTx{
		id: trxID,
		tx: trx,
	}, nil
}
