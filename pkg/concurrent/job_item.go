package concurrent

// RouteRowParam one row of an interchange layer to compute.
type RouteRowParam struct {
	Depth int
	Row   uint
}

func NewRouteRowParam(depth int, row uint) RouteRowParam {
	return RouteRowParam{
		Depth: depth,
		Row:   row,
	}
}

type Job[T any] struct {
	ID      int
	JobItem T
}

type JobFunc[T any, G any] func(job T) G
