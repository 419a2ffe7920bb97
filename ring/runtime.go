package ring

import "runtime"

func yieldProc() { runtime.Gosched() }
