package gormuuid

import (
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/Lzww0608/binuuid"
	"github.com/Lzww0608/binuuid/dialect"
)

type Record struct {
	UUID         ID  `gorm:"column:uuid;primaryKey" json:"uuid_text"`
	RelationUUID *ID `gorm:"column:relation_uuid" json:"relation_uuid_text"`
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type columnInfo struct {
	Name string
	Type string
}

type storedKey struct {
	Size int
	Hex  string
}

func newTestDB(t *testing.T, prefix string) (*gorm.DB, *binuuid.Factory) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{TablePrefix: prefix},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	factory := binuuid.NewFactory(binuuid.OrderedTimeCodec{}, nil)
	require.NoError(t, db.Use(&Plugin{Factory: factory}))
	require.NoError(t, db.AutoMigrate(&Record{}))
	return db, factory
}

func TestMigrate_UsesBinaryColumnWithPrefix(t *testing.T) {
	db, _ := newTestDB(t, "app_")

	assert.True(t, db.Migrator().HasTable("app_records"))

	var columns []columnInfo
	require.NoError(t, db.Raw("SELECT name, type FROM pragma_table_info(?)", "app_records").Scan(&columns).Error)

	types := map[string]string{}
	for _, c := range columns {
		types[c.Name] = strings.ToLower(c.Type)
	}
	assert.Equal(t, "blob(256)", types["uuid"])
	assert.Equal(t, "blob(256)", types["relation_uuid"])
}

func TestCreate_StoresSixteenBytes(t *testing.T) {
	db, factory := newTestDB(t, "")

	u, err := factory.New()
	require.NoError(t, err)
	rec := Record{UUID: ID{UUID: u}, Name: "one"}
	require.NoError(t, db.Create(&rec).Error)

	var stored storedKey
	require.NoError(t, db.Raw("SELECT length(uuid) AS size, hex(uuid) AS hex FROM records").Scan(&stored).Error)

	want, err := binuuid.OrderedTimeCodec{}.Encode(u)
	require.NoError(t, err)
	assert.Equal(t, 16, stored.Size)
	assert.Equal(t, strings.ToUpper(want.Hex()), stored.Hex)
}

func TestCreate_AssignsMissingPrimaryKey(t *testing.T) {
	db, _ := newTestDB(t, "")

	rec := Record{Name: "generated"}
	require.NoError(t, db.Create(&rec).Error)
	require.False(t, rec.UUID.IsZero())
	assert.Equal(t, binuuid.VersionTimeBased, rec.UUID.Version())

	batch := []*Record{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	require.NoError(t, db.Create(&batch).Error)
	for _, r := range batch {
		assert.False(t, r.UUID.IsZero(), r.Name)
	}
}

func TestReadBack_DecodesToText(t *testing.T) {
	db, factory := newTestDB(t, "")

	rel, err := factory.New()
	require.NoError(t, err)
	relID := ID{UUID: rel}
	rec := Record{Name: "with relation", RelationUUID: &relID}
	require.NoError(t, db.Create(&rec).Error)

	var got Record
	require.NoError(t, db.First(&got, "name = ?", "with relation").Error)
	assert.Equal(t, rec.UUID.String(), got.UUID.String())
	require.NotNil(t, got.RelationUUID)
	assert.Equal(t, rel.String(), got.RelationUUID.String())

	var orphan Record
	require.NoError(t, db.Create(&Record{Name: "orphan"}).Error)
	require.NoError(t, db.First(&orphan, "name = ?", "orphan").Error)
	assert.Nil(t, orphan.RelationUUID)
}

func TestResolve_ByTextualID(t *testing.T) {
	db, _ := newTestDB(t, "")

	text := "11111111-2222-1333-8444-555555555555"
	require.NoError(t, db.Create(&Record{UUID: MustParse(text), Name: "bound"}).Error)

	var got Record
	require.NoError(t, Resolve(db, &got, text))
	assert.Equal(t, text, got.UUID.String())
	assert.Equal(t, "bound", got.Name)

	var missing Record
	err := Resolve(db, &missing, "11111111-2222-1333-8444-000000000000")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound), err)

	err = Resolve(db, &missing, "not-a-uuid")
	assert.True(t, errors.Is(err, binuuid.ErrInvalidFormat), err)
}

func TestWhereID_ReferenceColumn(t *testing.T) {
	db, factory := newTestDB(t, "")

	parent, err := New(factory)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&Record{Name: "child", RelationUUID: &parent}).Error)
	}
	require.NoError(t, db.Create(&Record{Name: "other"}).Error)

	var children []Record
	require.NoError(t, db.Scopes(WhereID("relation_uuid", parent.String())).Find(&children).Error)
	assert.Len(t, children, 3)
}

func TestOrderByKey_FollowsGenerationTime(t *testing.T) {
	db, _ := newTestDB(t, "")

	gen := binuuid.NewGenerator(binuuid.WithNodeID([6]byte{2, 0, 0, 0, 0, 1}), binuuid.WithClockSequence(9))
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	var want []string
	var records []*Record
	for i := 0; i < 50; i++ {
		u, err := gen.NewWithTime(start.Add(time.Duration(i) * 11 * time.Minute))
		require.NoError(t, err)
		want = append(want, u.String())
		records = append(records, &Record{UUID: ID{UUID: u}, Name: u.String()})
	}
	rand.New(rand.NewSource(1)).Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})
	require.NoError(t, db.Create(&records).Error)

	var got []Record
	require.NoError(t, db.Order("uuid").Find(&got).Error)
	require.Len(t, got, len(want))
	for i := range got {
		assert.Equal(t, want[i], got[i].UUID.String(), "position %d", i)
	}
}

func TestConcurrentCreate_UniqueIDs(t *testing.T) {
	db, _ := newTestDB(t, "")

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 25; j++ {
				if err := db.Create(&Record{Name: "concurrent"}).Error; err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var count int64
	require.NoError(t, db.Model(&Record{}).Distinct("uuid").Count(&count).Error)
	assert.EqualValues(t, 200, count)
}

func TestTextAttributes(t *testing.T) {
	db, _ := newTestDB(t, "")

	rec := Record{UUID: MustParse("11111111-2222-1333-8444-555555555555")}
	attrs, err := TextAttributes{}.Of(db, &rec)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"uuid_text":          "11111111-2222-1333-8444-555555555555",
		"relation_uuid_text": nil,
	}, attrs)

	rel := MustParse("21111111-2222-1333-8444-555555555555")
	rec.RelationUUID = &rel
	attrs, err = TextAttributes{Suffix: "_str"}.Of(db, rec)
	require.NoError(t, err)
	assert.Equal(t, "21111111-2222-1333-8444-555555555555", attrs["relation_uuid_str"])
	assert.Contains(t, attrs, "uuid_str")
}

func TestJSON_ExposesText(t *testing.T) {
	rec := Record{UUID: MustParse("11111111-2222-1333-8444-555555555555"), Name: "json"}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"uuid_text":"11111111-2222-1333-8444-555555555555"`)
	assert.Contains(t, string(data), `"relation_uuid_text":null`)

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec.UUID, back.UUID)
	assert.Nil(t, back.RelationUUID)
}

func TestID_ValueScan(t *testing.T) {
	id := MustParse("11111111-2222-1333-4444-555555555555")

	v, err := id.Value()
	require.NoError(t, err)
	raw, ok := v.([]byte)
	require.True(t, ok)
	assert.Len(t, raw, 16)

	var back ID
	require.NoError(t, back.Scan(raw))
	assert.Equal(t, id, back)

	passthrough, err := FromBinary(raw)
	require.NoError(t, err)
	again, err := passthrough.Value()
	require.NoError(t, err)
	assert.Equal(t, raw, again)

	require.NoError(t, back.Scan("11111111-2222-1333-4444-555555555555"))
	assert.Equal(t, id, back)

	require.NoError(t, back.Scan(nil))
	assert.True(t, back.IsZero())

	zero, err := ID{}.Value()
	require.NoError(t, err)
	assert.Nil(t, zero)

	assert.ErrorIs(t, back.Scan(make([]byte, 15)), binuuid.ErrInvalidLength)
	assert.ErrorIs(t, back.Scan(make([]byte, 17)), binuuid.ErrInvalidLength)
	assert.ErrorIs(t, back.Scan(strings.Repeat("z", 36)), binuuid.ErrInvalidFormat)

	require.NoError(t, back.Scan("11111111222213334444555555555555"))
	assert.Equal(t, id, back)
	require.NoError(t, back.Scan("{11111111-2222-1333-4444-555555555555}"))
	assert.Equal(t, id, back)
	require.NoError(t, back.Scan("urn:uuid:11111111-2222-1333-4444-555555555555"))
	assert.Equal(t, id, back)
	assert.Error(t, back.Scan(42))

	_, err = FromBinary(make([]byte, 17))
	assert.ErrorIs(t, err, binuuid.ErrInvalidLength)
}

type fakeDialector struct {
	gorm.Dialector
	name string
}

func (d fakeDialector) Name() string { return d.name }

func TestGormDBDataType(t *testing.T) {
	field := &schema.Field{DBName: "id", PrimaryKey: true}

	for _, tt := range []struct {
		name string
		want string
	}{
		{"mysql", "binary(16)"},
		{"sqlite", "blob(256)"},
	} {
		db := &gorm.DB{Config: &gorm.Config{Dialector: fakeDialector{name: tt.name}}}
		assert.Equal(t, tt.want, ID{}.GormDBDataType(db, field))
		assert.NoError(t, db.Error)
	}

	db := &gorm.DB{Config: &gorm.Config{Dialector: fakeDialector{name: "postgres"}}}
	assert.Empty(t, ID{}.GormDBDataType(db, field))
	assert.ErrorIs(t, db.Error, dialect.ErrUnsupportedDialect)
}

func TestPlugin_RejectsUnsupportedDialect(t *testing.T) {
	db := &gorm.DB{Config: &gorm.Config{Dialector: fakeDialector{name: "postgres"}}}
	err := (&Plugin{}).Initialize(db)
	assert.ErrorIs(t, err, dialect.ErrUnsupportedDialect)
}

func TestPlugin_RejectsConflictingCodec(t *testing.T) {
	factory := binuuid.NewFactory(binuuid.StandardCodec{}, nil)
	_, err := factory.New()
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	assert.ErrorIs(t, db.Use(&Plugin{Factory: factory}), binuuid.ErrCodecInUse)
}
