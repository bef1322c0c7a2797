// Copyright 2024-2026 Aiku AI

//go:build !hookrelay_debug

package msgbuilder

func assertf(string, ...any) {}
