package benchtps

import "go.uber.org/zap"

// log is silent by default so importing this package never forces
// output; cmd/bench-tps installs a real logger via SetLogger at main().
var log = zap.NewNop().Sugar()

// SetLogger installs l as the package-wide structured logger.
func SetLogger(l *zap.SugaredLogger) {
	log = l
}
