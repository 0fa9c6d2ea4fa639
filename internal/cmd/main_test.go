// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd_test

import (
	"os"
	"testing"

	"go.uber.org/goleak"

	"github.com/aibor/virtsup/internal/supervisor/supervisortest"
)

func TestMain(m *testing.M) {
	if code, ok := supervisortest.Main(); ok {
		os.Exit(code)
	}

	goleak.VerifyTestMain(m)
}
