// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/feravila/itinera/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
