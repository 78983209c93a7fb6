package sqlx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kcmvp/arx/app"
	"github.com/kcmvp/arx/entity"
	sample "github.com/kcmvp/arx/sample/entity"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

// Phantom is registered but its table is never created.
type Phantom struct {
	ID mo.Option[int64]
}

func (Phantom) Table() string { return "phantoms" }

var _ = entity.MustRegister(entity.AutoPK[Phantom, int64]("id", func(p *Phantom) *mo.Option[int64] { return &p.ID }))

type SQLXTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       DB
	fixtures []int64
}

func (s *SQLXTestSuite) SetupSuite() {
	s.ctx = context.Background()
	SetSQLLogger(app.Logger())
	// DefaultDS comes from the datasource section of application_test.yml.
	s.Require().NoError(InitDataSources())
	db, ok := DefaultDS()
	s.Require().True(ok && db != nil, "default datasource not configured; please provide application_test.yml with a 'datasource.DefaultDS' entry")
	s.db = db
	s.Require().NoError(CreateTable[sample.User](s.ctx, s.db))
	s.Require().NoError(CreateTable[Event](s.ctx, s.db))
	// idempotent
	s.Require().NoError(CreateTable[sample.User](s.ctx, s.db))
}

func (s *SQLXTestSuite) TearDownSuite() {
	s.Require().NoError(CloseAllDataSources())
}

// SetupTest reloads testdata/users.json into an empty users table.
func (s *SQLXTestSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, "DELETE FROM users")
	s.Require().NoError(err)
	_, err = s.db.ExecContext(s.ctx, "DELETE FROM events")
	s.Require().NoError(err)

	b, err := os.ReadFile(filepath.Join("..", "testdata", "users.json"))
	s.Require().NoError(err)
	s.fixtures = s.fixtures[:0]
	gjson.GetBytes(b, "users").ForEach(func(_, v gjson.Result) bool {
		u, err := sample.UserMapping.Decode(v.Raw)
		s.Require().NoError(err)
		_, err = Save(s.ctx, s.db, u)
		s.Require().NoError(err)
		s.fixtures = append(s.fixtures, u.ID.MustGet())
		return true
	})
	s.Require().Len(s.fixtures, 4)
}

func (s *SQLXTestSuite) TestTableName() {
	name, err := TableName[sample.User]()
	s.NoError(err)
	s.Equal("users", name)
}

func (s *SQLXTestSuite) TestSaveInsertBackfillsID() {
	u := &sample.User{Email: mo.Some("eve@example.com"), Name: mo.Some("Eve"), Age: mo.Some(28)}
	got, err := Save(s.ctx, s.db, u)
	s.Require().NoError(err)
	s.Same(u, got)
	id, ok := u.ID.Get()
	s.Require().True(ok)
	s.Greater(id, lo.Max(s.fixtures))

	found, err := FindByID[sample.User](s.ctx, s.db, id)
	s.Require().NoError(err)
	s.Require().True(found.IsPresent())
	loaded := found.MustGet()
	s.Equal("eve@example.com", loaded.Email.MustGet())
	s.Equal(28, loaded.Age.MustGet())
	s.True(loaded.Phone.IsAbsent())
}

func (s *SQLXTestSuite) TestSaveUpdatesOnlyPresentColumns() {
	id := s.fixtures[0]
	_, err := Save(s.ctx, s.db, &sample.User{ID: mo.Some(id), Name: mo.Some("Anna"), Age: mo.Some(32)})
	s.Require().NoError(err)

	loaded := lo.Must(FindByID[sample.User](s.ctx, s.db, id)).MustGet()
	s.Equal("Anna", loaded.Name.MustGet())
	s.Equal(32, loaded.Age.MustGet())
	// untouched columns keep their values
	s.Equal("ann@example.com", loaded.Email.MustGet())
	s.Equal("555-0101", loaded.Phone.MustGet())

	all, err := FindAll[sample.User](s.ctx, s.db)
	s.Require().NoError(err)
	s.Len(all, 4)
}

func (s *SQLXTestSuite) TestSaveLoadedEntityRoundTrip() {
	u := lo.Must(FindByID[sample.User](s.ctx, s.db, s.fixtures[1])).MustGet()
	u.Address = mo.Some("9 Elm St")
	_, err := Save(s.ctx, s.db, &u)
	s.Require().NoError(err)
	loaded := lo.Must(FindByID[sample.User](s.ctx, s.db, s.fixtures[1])).MustGet()
	s.Equal(u, loaded)
}

func (s *SQLXTestSuite) TestUpdateMissingRow() {
	_, err := Save(s.ctx, s.db, &sample.User{ID: mo.Some(int64(424242)), Name: mo.Some("Nobody")})
	s.NoError(err)
	found, err := FindByID[sample.User](s.ctx, s.db, int64(424242))
	s.NoError(err)
	s.True(found.IsAbsent())
}

func (s *SQLXTestSuite) TestSaveRejectsInvalidState() {
	_, err := Save(s.ctx, s.db, &sample.User{Email: mo.Some("broken"), Name: mo.Some("Zed")})
	s.ErrorIs(err, ErrInvalidState)

	_, err = Save(s.ctx, s.db, &sample.User{})
	s.ErrorIs(err, ErrPersistence)

	_, err = Save(s.ctx, s.db, &sample.User{ID: mo.Some(s.fixtures[0])})
	s.ErrorIs(err, ErrPersistence)

	all, err := FindAll[sample.User](s.ctx, s.db)
	s.Require().NoError(err)
	s.Len(all, 4)
}

func (s *SQLXTestSuite) TestInsertDuplicateKey() {
	_, err := Insert(s.ctx, s.db, &sample.User{ID: mo.Some(s.fixtures[0]), Name: mo.Some("Clone")})
	s.Require().ErrorIs(err, ErrPersistence)
	var sqlErr *Error
	s.Require().ErrorAs(err, &sqlErr)
	s.Equal(DuplicateKeyErr, sqlErr.Code)
}

func (s *SQLXTestSuite) TestDelete() {
	u := lo.Must(FindByID[sample.User](s.ctx, s.db, s.fixtures[2])).MustGet()
	got, err := Delete(s.ctx, s.db, &u)
	s.Require().NoError(err)
	s.Same(&u, got)
	s.Equal("Cid", got.Name.MustGet())

	found, err := FindByID[sample.User](s.ctx, s.db, s.fixtures[2])
	s.NoError(err)
	s.True(found.IsAbsent())

	_, err = Delete(s.ctx, s.db, &sample.User{Name: mo.Some("Cid")})
	s.ErrorIs(err, ErrInvalidState)

	all, err := FindAll[sample.User](s.ctx, s.db)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *SQLXTestSuite) TestFindByIDNotFound() {
	found, err := FindByID[sample.User](s.ctx, s.db, int64(-1))
	s.NoError(err)
	s.True(found.IsAbsent())
}

func (s *SQLXTestSuite) TestFindAllKeepsResultOrder() {
	all, err := FindAll[sample.User](s.ctx, s.db)
	s.Require().NoError(err)
	s.Equal([]string{"Ann", "Bob", "Cid", "Dee"}, lo.Map(all, func(u sample.User, _ int) string { return u.Name.MustGet() }))
	s.Equal(s.fixtures, lo.Map(all, func(u sample.User, _ int) int64 { return u.ID.MustGet() }))
	// null columns stay unset
	s.True(all[2].Phone.IsAbsent())
	s.Equal("s3cret", all[3].Password.MustGet())

	_, err = s.db.ExecContext(s.ctx, "DELETE FROM users")
	s.Require().NoError(err)
	all, err = FindAll[sample.User](s.ctx, s.db)
	s.NoError(err)
	s.NotNil(all)
	s.Empty(all)
}

func (s *SQLXTestSuite) TestFind() {
	list, err := Find[sample.User](s.ctx, s.db, "age", 40)
	s.Require().NoError(err)
	s.Len(list, 2)

	list, err = Find[sample.User](s.ctx, s.db, "EMAIL", "dee@example.com")
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("Dee", list[0].Name.MustGet())

	list, err = Find[sample.User](s.ctx, s.db, "name", "Nobody")
	s.NoError(err)
	s.Empty(list)

	_, err = Find[sample.User](s.ctx, s.db, "nickname", "x")
	s.ErrorIs(err, ErrInvalidState)
}

func (s *SQLXTestSuite) TestFindWhere() {
	list, err := FindWhere[sample.User](s.ctx, s.db, Condition{"age", 40}, Condition{"name", "Cid"})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("cid@example.com", list[0].Email.MustGet())

	_, err = FindWhere[sample.User](s.ctx, s.db)
	s.ErrorIs(err, ErrInvalidState)
}

func (s *SQLXTestSuite) TestQuery() {
	list, err := Query(s.ctx, s.db, Or(Lt(sample.UserAge, 25), Like(sample.UserEmail, "ann%")))
	s.Require().NoError(err)
	s.Equal([]string{"Ann", "Dee"}, lo.Map(list, func(u sample.User, _ int) string { return u.Name.MustGet() }))

	list, err = Query(s.ctx, s.db, In(sample.UserID, lo.ToAnySlice(s.fixtures[:2])...))
	s.Require().NoError(err)
	s.Len(list, 2)

	list, err = Query(s.ctx, s.db, In[sample.User](sample.UserID))
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *SQLXTestSuite) TestDefaultConnection() {
	all, err := FindAll[sample.User](s.ctx, nil)
	s.Require().NoError(err)
	s.Len(all, 4)
}

func (s *SQLXTestSuite) TestMissingTable() {
	_, err := FindAll[Phantom](s.ctx, s.db)
	s.Require().ErrorIs(err, ErrQuery)
	var sqlErr *Error
	s.Require().ErrorAs(err, &sqlErr)
	s.Equal(NoTableErr, sqlErr.Code)
	s.Equal("phantoms", sqlErr.Table)
}

func (s *SQLXTestSuite) TestHydrationIgnoresUndeclaredColumns() {
	starts := time.Date(2025, 5, 17, 9, 30, 0, 0, time.UTC)
	e := &Event{Code: mo.Some("go-day"), Score: mo.Some(4.5), Public: mo.Some(true), Seats: mo.Some(uint32(120)), StartsAt: mo.Some(starts)}
	// the natural key is set, so Save updates a row that does not exist yet
	_, err := Save(s.ctx, s.db, e)
	s.Require().NoError(err)
	found, err := FindByID[Event](s.ctx, s.db, "go-day")
	s.Require().NoError(err)
	s.True(found.IsAbsent())

	_, err = Insert(s.ctx, s.db, e)
	s.Require().NoError(err)
	_, err = s.db.ExecContext(s.ctx, "INSERT INTO events (code) VALUES (?)", "meetup")
	s.Require().NoError(err)

	rows, err := s.db.QueryContext(s.ctx, "SELECT code, seats, 'x' AS extra FROM events ORDER BY code")
	s.Require().NoError(err)
	defer func() { _ = rows.Close() }()
	list, err := hydrate(eventMapping, rows)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("go-day", list[0].Code.MustGet())
	s.Equal(uint32(120), list[0].Seats.MustGet())
	s.True(list[0].Score.IsAbsent())
	s.True(list[1].Seats.IsAbsent())

	loaded := lo.Must(FindByID[Event](s.ctx, s.db, "go-day")).MustGet()
	s.Equal(4.5, loaded.Score.MustGet())
	s.True(loaded.Public.MustGet())
	s.True(starts.Equal(loaded.StartsAt.MustGet()))
}

func TestSQLXTestSuite(t *testing.T) {
	suite.Run(t, new(SQLXTestSuite))
}
