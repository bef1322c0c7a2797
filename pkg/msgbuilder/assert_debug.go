// Copyright 2024-2026 Aiku AI

//go:build hookrelay_debug

package msgbuilder

import "fmt"

func assertf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
