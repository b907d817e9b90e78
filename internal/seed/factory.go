package seed

import (
	"fmt"
	"strings"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DemoPassword is the password of every generated user.
const DemoPassword = "password123"

// Factory builds and persists demo entities.
type Factory struct {
	db     *gorm.DB
	faker  *gofakeit.Faker
	hashed string
	now    time.Time
	seq    int
}

// NewFactory creates a factory. The same seed produces the same data.
func NewFactory(db *gorm.DB, seed int64, skipBcrypt bool) (*Factory, error) {
	hashed := DemoPassword
	if !skipBcrypt {
		h, err := auth.HashPassword(DemoPassword)
		if err != nil {
			return nil, err
		}
		hashed = h
	}
	return &Factory{db: db, faker: gofakeit.New(seed), hashed: hashed, now: time.Now()}, nil
}

// CreateUser persists a user with a generated, unique username.
func (f *Factory) CreateUser() (*models.User, error) {
	f.seq++
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := fmt.Sprintf("%s.%s%d", strings.ToLower(first), strings.ToLower(last), f.seq)
	username = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.' {
			return r
		}
		return -1
	}, username)

	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  f.hashed,
		FirstName: first,
		LastName:  last,
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists a post dated up to 90 days back.
func (f *Factory) CreatePost(author *models.User, group *models.Group) (*models.Post, error) {
	post := &models.Post{
		Text:     f.faker.Paragraph(1, 3, 12, "\n"),
		AuthorID: author.ID,
		PubDate:  f.now.Add(-time.Duration(f.faker.Number(0, 90*24*60)) * time.Minute),
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	if err := f.db.Omit("Author", "Group").Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

func (f *Factory) CreateComment(post *models.Post, author *models.User) (*models.Comment, error) {
	c := &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: f.faker.Sentence(f.faker.Number(4, 14))}
	if err := f.db.Omit("Post", "Author").Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// Pick returns a pseudo-random index below n.
func (f *Factory) Pick(n int) int {
	return f.faker.Number(0, n-1)
}
