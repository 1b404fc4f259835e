package logs

import "sync/atomic"

func atomicStore(l *Level, v Level) {
	atomic.StoreUint32((*uint32)(l), uint32(v))
}

func atomicLoad(l *Level) Level {
	return Level(atomic.LoadUint32((*uint32)(l)))
}
