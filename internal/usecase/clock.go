package usecase

import "time"

// テストで時間を固定できるようにする
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}
