// Command tqi calibrates quality models and scores projects with a Total Quality Index.
package main

import (
	"github.com/huangsam/tqi/cmd"
	"github.com/huangsam/tqi/internal/contract"
	"github.com/huangsam/tqi/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)

	err := cmd.Execute()
	iocache.CloseStores()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}
