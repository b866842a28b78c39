// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/pkg/errutil"
)

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "://not a url", DefaultConnectOptions())
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "STORE_CONFIG_INVALID")
}

func TestConnect_GivesUpAfterAttempts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := Connect(ctx, "postgres://nobody@127.0.0.1:1/accounts?connect_timeout=1", ConnectOptions{
		Attempts:  2,
		BaseDelay: time.Millisecond,
	})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "STORE_CONNECT_FAILED")
	errutil.AssertErrorContext(t, err, "attempts", 2)
}
