package query

import (
	"context"
	"fmt"
	"time"
)

// Result is the typed, serialisable form of State.
type Result[T any] struct {
	Data      T          `json:"data"`
	IsLoading bool       `json:"isLoading"`
	IsError   bool       `json:"isError"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`

	Err error `json:"-"`
}

func ResultOf[T any](st State) (Result[T], error) {
	r := Result[T]{
		IsLoading: st.IsLoading,
		IsError:   st.IsError,
		Err:       st.Err,
	}
	if st.Err != nil {
		r.Error = st.Err.Error()
	}
	if st.HasData {
		data, ok := st.Data.(T)
		if !ok {
			return Result[T]{}, fmt.Errorf("query: cached %T is not %T", st.Data, r.Data)
		}
		r.Data = data
		at := st.UpdatedAt
		r.UpdatedAt = &at
	}
	return r, nil
}

// Get fetches key through c and converts the state to T.
func Get[T any](ctx context.Context, c *Client, key Key) (Result[T], error) {
	st, err := c.Fetch(ctx, key)
	if err != nil {
		return Result[T]{}, err
	}
	return ResultOf[T](st)
}
