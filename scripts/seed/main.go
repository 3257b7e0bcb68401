// Command seed populates a running API with demo data: one teacher,
// a class of students, and one mood submission per student. Useful for
// exercising the insight and analysis endpoints locally.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type userInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type loginResponse struct {
	AccessToken string   `json:"access_token"`
	User        userInfo `json:"user"`
}

func main() {
	var (
		base     string
		classID  string
		students int
		password string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&classID, "class", "9-A", "Class ID for the seeded students")
	flag.IntVar(&students, "students", 5, "Number of students to create")
	flag.StringVar(&password, "password", "demo-pass", "Password for all seeded users")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	suffix := time.Now().Unix()

	teacher := register(client, base, map[string]interface{}{
		"username": fmt.Sprintf("teacher_%d", suffix),
		"password": password,
	})
	log.Printf("created teacher %s (%s)", teacher.Username, teacher.ID)

	for i := 0; i < students; i++ {
		student := register(client, base, map[string]interface{}{
			"username":   fmt.Sprintf("student_%d_%d", suffix, i),
			"password":   password,
			"teacher_id": teacher.ID,
			"class_id":   classID,
		})

		token := login(client, base, student.Username, password)
		answers := make([]int, 5)
		for j := range answers {
			answers[j] = rand.Intn(6)
		}
		submitMood(client, base, token, student.ID, classID, answers)
		log.Printf("created student %s with mood answers %v", student.Username, answers)
	}

	fmt.Printf("Seeded 1 teacher and %d students in class %s\n", students, classID)
	fmt.Printf("Teacher login: teacher_%d / %s\n", suffix, password)
}

func register(client *http.Client, base string, payload map[string]interface{}) userInfo {
	var user userInfo
	if err := postJSON(client, base+"/auth/register", "", payload, &user); err != nil {
		log.Fatalf("register failed: %v", err)
	}
	return user
}

func login(client *http.Client, base, username, password string) string {
	var res loginResponse
	payload := map[string]interface{}{"username": username, "password": password}
	if err := postJSON(client, base+"/auth/login", "", payload, &res); err != nil {
		log.Fatalf("login failed for %s: %v", username, err)
	}
	return res.AccessToken
}

func submitMood(client *http.Client, base, token, userID, classID string, answers []int) {
	payload := map[string]interface{}{
		"user_id":  userID,
		"class_id": classID,
		"answers":  answers,
	}
	if err := postJSON(client, base+"/moods/submit", token, payload, nil); err != nil {
		log.Fatalf("mood submission failed for %s: %v", userID, err)
	}
}

func postJSON(client *http.Client, url, token string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%s: %s (%s)", url, env.Error.Message, env.Error.Code)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status %d", url, resp.StatusCode)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
