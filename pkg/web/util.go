package web

import (
	"reflect"
	"runtime"

	"go.uber.org/zap"
)

func nameOfFunction(f interface{}) string {
	return runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
}

func logger() *zap.SugaredLogger {
	return zap.S()
}
