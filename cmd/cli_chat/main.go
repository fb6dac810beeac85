package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"convo-proxy/internal/config"
	"convo-proxy/internal/llm"
	"convo-proxy/internal/repository"
	"convo-proxy/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	for _, w := range cfg.Warnings() {
		log.Printf("warning: %s", w)
	}

	logger, err := newCLILogger(cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	provider, err := llm.New(cfg.LLM(), logger)
	if err != nil {
		log.Fatal(err)
	}
	sessions := repository.NewMemorySessionRepository(logger)
	chatSvc := service.NewChatService(sessions, provider, nil, logger)

	fmt.Printf("Proveedor: %s\n", provider.Kind())
	if err := runREPL(ctx, os.Stdin, os.Stdout, chatSvc, sessions); err != nil {
		log.Fatal(err)
	}
}

// newCLILogger devuelve un logger no-op salvo con DEBUG.
func newCLILogger(debug bool) (*zap.Logger, error) {
	if !debug {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// runREPL lee mensajes linea por linea hasta "salir"/"exit" o EOF.
// "/reset" vacia la sesion actual y "/historial" la imprime.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, chatSvc *service.ChatService, sessions repository.SessionRepository) error {
	reader := bufio.NewReader(in)
	sessionID := sessions.CreateSession()

	fmt.Fprintln(out, "---- Modo Chat (escribe 'salir' para terminar, '/reset' para reiniciar, '/historial' para ver la sesion) ----")
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("leer input: %w", err)
		}
		eof := err == io.EOF
		text = strings.TrimSpace(text)

		switch {
		case text == "":
		case strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit"):
			fmt.Fprintln(out, "Saliendo del chat...")
			return nil
		case text == "/reset":
			sessions.ClearSession(sessionID)
			fmt.Fprintln(out, "Sesion reiniciada.")
		case text == "/historial":
			history := sessions.History(sessionID)
			if len(history) == 0 {
				fmt.Fprintln(out, "(sin mensajes)")
			}
			for _, m := range history {
				fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.Role, m.Content)
			}
		default:
			res, err := chatSvc.Chat(ctx, sessionID, text)
			if err != nil {
				fmt.Fprintf(out, "error generando respuesta: %v\n", err)
			} else {
				fmt.Fprintf(out, "Asistente > %s\n", res.Response)
			}
		}

		if eof {
			return nil
		}
	}
}
