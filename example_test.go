package chime_test

import (
	"context"
	"fmt"
	"time"

	"github.com/chimekit/chime"
)

func ExampleParse() {
	sched, err := chime.Parse("at(07:30, [weekday 6, weekday 7])")
	if err != nil {
		fmt.Println("parse:", err)
		return
	}
	fmt.Println(sched.Kind, sched)
	// Output: at at(07:30, [weekday 6, weekday 7])
}

func ExampleSchedule_Next() {
	sched := chime.MustParse("at(07:30, weekday 1)")

	// Monday noon: today's 07:30 has passed and Mondays are skipped anyway,
	// so the schedule fires Tuesday morning.
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	next, ok := sched.Next(now)
	fmt.Println(ok, next.Format("2006-01-02 15:04:05"))
	// Output: true 2026-08-25 07:30:00
}

func ExampleScheduler() {
	s := chime.New(chime.WithLocation(time.UTC))

	s.Run(chime.TaskFunc{
		Label: "greet",
		Plan:  chime.Wait(10 * time.Millisecond),
		Time: func(ctx context.Context, stop func()) {
			fmt.Println("fired")
			stop()
		},
	})

	<-s.Done()
	// Output: fired
}
