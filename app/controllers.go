package app

import (
	gohttp "github.com/km-arc/arc/framework/http"
	"github.com/km-arc/arc/framework/http/validation"
)

// userStore is a stand-in repository so the demo runs without a database.
type userStore struct {
	users  map[int]User
	nextID int
}

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newUserStore() *userStore {
	return &userStore{
		users: map[int]User{
			1: {ID: 1, Name: "Alice", Email: "alice@example.com"},
			2: {ID: 2, Name: "Bob", Email: "bob@example.com"},
		},
		nextID: 3,
	}
}

// UserController handles the /users routes. Scalar handler parameters are
// filled from the route params (coerced), the request and the store from
// the container.
type UserController struct {
	store *userStore
}

func NewUserController(store *userStore) *UserController {
	return &UserController{store: store}
}

func (uc *UserController) Index() *gohttp.Response {
	out := make([]User, 0, len(uc.store.users))
	for _, u := range uc.store.users {
		out = append(out, u)
	}
	return gohttp.Success(out)
}

func (uc *UserController) Show(id int) *gohttp.Response {
	u, ok := uc.store.users[id]
	if !ok {
		return gohttp.NotFound("No such user.")
	}
	return gohttp.Success(u)
}

func (uc *UserController) Store(req *gohttp.Request) (*gohttp.Response, error) {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := req.Bind(&body); err != nil {
		return gohttp.Error(400, err.Error()), nil
	}

	v := validation.Make(map[string]string{
		"name":  body.Name,
		"email": body.Email,
	}, validation.Rules{
		"name":  "required|min:2|max:100",
		"email": "required|email",
	})
	if v.Fails() {
		return nil, &validation.FailedError{Errors: v.Errors()}
	}

	u := User{ID: uc.store.nextID, Name: body.Name, Email: body.Email}
	uc.store.users[u.ID] = u
	uc.store.nextID++
	return gohttp.Created(u), nil
}

func (uc *UserController) Destroy(id int) *gohttp.Response {
	if _, ok := uc.store.users[id]; !ok {
		return gohttp.NotFound("No such user.")
	}
	delete(uc.store.users, id)
	return gohttp.NoContent()
}
