package watch

import "os"

var fsStat = os.Stat
