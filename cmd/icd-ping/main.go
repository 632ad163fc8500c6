// icd-ping — утилита для проверки доступности классификационного API.
//
// Выполняет token exchange и один поисковый запрос ("Cholera"),
// печатает найденные коды со ссылками.
//
// Использование:
//
//	go run cmd/icd-ping/main.go [config.yaml]
//
// Переменные окружения:
//
//	ICD_CLIENT_ID     - client id для client credentials exchange
//	ICD_CLIENT_SECRET - client secret
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilkoid/kodik-ai/pkg/config"
	"github.com/ilkoid/kodik-ai/pkg/icd"
)

func main() {
	// 1. Загружаем конфигурацию
	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", cfgPath, err)
	}

	client, err := icd.NewFromConfig(cfg.ICD)
	if err != nil {
		log.Fatalf("Failed to create ICD client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// 2. Token exchange
	fmt.Println("Requesting bearer token...")
	start := time.Now()
	token, err := client.Token(ctx)
	if err != nil {
		fmt.Printf("❌ Token exchange failed: %v\n", err)
		fmt.Printf("   %s\n", icd.ClassifyError(err).HumanMessage())
		os.Exit(1)
	}
	fmt.Printf("✅ Token obtained in %v\n", time.Since(start).Round(time.Millisecond))

	// 3. Пробный поиск
	term := "Cholera"
	fmt.Printf("Searching for %q...\n", term)
	start = time.Now()
	entities, err := client.Search(ctx, token, term)
	if err != nil {
		fmt.Printf("❌ Search failed: %v\n", err)
		fmt.Printf("   %s\n", icd.ClassifyError(err).HumanMessage())
		os.Exit(1)
	}

	fmt.Printf("✅ %d entities in %v\n", len(entities), time.Since(start).Round(time.Millisecond))
	for _, e := range entities {
		fmt.Printf("   %-10s %s\n", e.TheCode, e.ID)
	}
}
